package entitlement

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/validation"
)

const DefaultTierName = "free"

type PlansFile struct {
	Tiers []Tier `json:"tiers"`
}

// Catalog holds the known tiers keyed by name.
type Catalog struct {
	mu    sync.RWMutex
	tiers map[string]*Tier
}

func NewCatalog() *Catalog {
	return &Catalog{
		tiers: make(map[string]*Tier),
	}
}

// DefaultCatalog returns the built-in free, premium and pro plans.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, t := range builtinTiers() {
		c.Register(t)
	}
	return c
}

func builtinTiers() []Tier {
	return []Tier{
		{
			Name:        "free",
			DisplayName: "Free",
			Rank:        0,
			Price:       0,
			Features: []string{
				"Up to 10 assignments",
				"Basic Canvas & Google Classroom sync",
				"2 courses maximum",
				"Basic themes",
			},
			Limits: Limits{
				MaxAssignments: 10,
				MaxCourses:     2,
				SyncFrequency:  SyncDaily,
				Themes:         ThemeList("default", "dark"),
			},
		},
		{
			Name:        "premium",
			DisplayName: "Premium",
			Rank:        1,
			Price:       4.99,
			PriceID:     "price_premium_monthly",
			Features: []string{
				"Unlimited assignments",
				"Real-time sync",
				"Unlimited courses",
				"Custom themes & backgrounds",
				"Advanced notifications",
				"Calendar export",
			},
			Limits: Limits{
				MaxAssignments: Unlimited,
				MaxCourses:     Unlimited,
				SyncFrequency:  SyncRealtime,
				Themes:         AllThemes(),
			},
		},
		{
			Name:        "pro",
			DisplayName: "Pro",
			Rank:        2,
			Price:       9.99,
			PriceID:     "price_pro_monthly",
			Features: []string{
				"Everything in Premium",
				"Team collaboration",
				"Advanced analytics",
				"Priority support",
				"Cloud backup",
				"Multi-device sync",
				"Custom integrations",
			},
			Limits: Limits{
				MaxAssignments: Unlimited,
				MaxCourses:     Unlimited,
				SyncFrequency:  SyncRealtime,
				Themes:         AllThemes(),
				TeamMembers:    10,
				Analytics:      true,
				CloudBackup:    true,
			},
		},
	}
}

// LoadFromFile replaces the built-in plans with the ones in a JSON plans file.
func LoadFromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plans config: %w", err)
	}

	var file PlansFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse plans config: %w", err)
	}
	if len(file.Tiers) == 0 {
		return nil, fmt.Errorf("plans config %s defines no tiers", path)
	}

	catalog := NewCatalog()
	for i := range file.Tiers {
		if err := validation.Struct(file.Tiers[i]); err != nil {
			return nil, fmt.Errorf("tier %q: %w", file.Tiers[i].Name, err)
		}
		if catalog.Exists(file.Tiers[i].Name) {
			return nil, fmt.Errorf("tier %q defined twice", file.Tiers[i].Name)
		}
		catalog.Register(file.Tiers[i])
	}
	return catalog, nil
}

func (c *Catalog) Register(t Tier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tiers[t.Name] = &t
}

func (c *Catalog) Get(name string) (Tier, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tiers[name]
	if !ok {
		return Tier{}, false
	}
	return *t, true
}

func (c *Catalog) Exists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tiers[name]
	return ok
}

// All returns every tier ordered by rank, then name.
func (c *Catalog) All() []Tier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Tier, 0, len(c.tiers))
	for _, t := range c.tiers {
		result = append(result, *t)
	}
	slices.SortFunc(result, func(a, b Tier) int {
		if a.Rank != b.Rank {
			return a.Rank - b.Rank
		}
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return result
}

// Above returns the tiers ranked strictly higher than t, lowest first.
func (c *Catalog) Above(t Tier) []Tier {
	var out []Tier
	for _, candidate := range c.All() {
		if candidate.Rank > t.Rank {
			out = append(out, candidate)
		}
	}
	return out
}
