package entitlement

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Action names a capability that can be gated by a tier.
type Action string

const (
	ActionAssignmentCreation Action = "assignment_creation"
	ActionCourseCreation     Action = "course_creation"
	ActionRealtimeSync       Action = "realtime_sync"
	ActionCustomThemes       Action = "custom_themes"
	ActionAnalytics          Action = "analytics"
	ActionCloudBackup        Action = "cloud_backup"
	ActionTeamCollaboration  Action = "team_collaboration"
)

// Actions lists every action the gate knows about.
var Actions = []Action{
	ActionAssignmentCreation,
	ActionCourseCreation,
	ActionRealtimeSync,
	ActionCustomThemes,
	ActionAnalytics,
	ActionCloudBackup,
	ActionTeamCollaboration,
}

// Unlimited disables a numeric cap.
const Unlimited = -1

type SyncFrequency string

const (
	SyncDaily    SyncFrequency = "daily"
	SyncRealtime SyncFrequency = "realtime"
)

// Themes is either an explicit list of theme names or every theme.
// On the wire it is a JSON array or the string "all".
type Themes struct {
	All   bool
	Names []string
}

func AllThemes() Themes {
	return Themes{All: true}
}

func ThemeList(names ...string) Themes {
	return Themes{Names: names}
}

func (t Themes) Allows(theme string) bool {
	return t.All || slices.Contains(t.Names, theme)
}

func (t Themes) MarshalJSON() ([]byte, error) {
	if t.All {
		return json.Marshal("all")
	}
	names := t.Names
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

func (t *Themes) UnmarshalJSON(data []byte) error {
	var word string
	if err := json.Unmarshal(data, &word); err == nil {
		if word != "all" {
			return fmt.Errorf("themes: unknown value %q", word)
		}
		*t = AllThemes()
		return nil
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("themes: expected \"all\" or a list of names: %w", err)
	}
	*t = ThemeList(names...)
	return nil
}

type Limits struct {
	MaxAssignments int           `json:"max_assignments" validate:"min=-1"`
	MaxCourses     int           `json:"max_courses" validate:"min=-1"`
	SyncFrequency  SyncFrequency `json:"sync_frequency" validate:"oneof=daily realtime"`
	Themes         Themes        `json:"themes"`
	TeamMembers    int           `json:"team_members" validate:"min=0"`
	Analytics      bool          `json:"analytics"`
	CloudBackup    bool          `json:"cloud_backup"`
}

// Tier is a subscription plan. Rank orders tiers by capability; names carry no ordering.
type Tier struct {
	Name        string   `json:"name" validate:"notblank"`
	DisplayName string   `json:"display_name" validate:"notblank"`
	Rank        int      `json:"rank" validate:"min=0"`
	Price       float64  `json:"price" validate:"min=0"`
	PriceID     string   `json:"price_id,omitempty"`
	Features    []string `json:"features"`
	Limits      Limits   `json:"limits"`
}

// Usage is what a user currently consumes against numeric limits.
type Usage struct {
	Assignments int `json:"assignments"`
	Courses     int `json:"courses"`
}

func withinLimit(limit, used int) bool {
	return limit == Unlimited || used < limit
}
