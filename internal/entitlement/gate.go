package entitlement

import (
	"fmt"
	"time"
)

// Gate decides whether a tier permits an action given current usage.
type Gate struct {
	catalog *Catalog
}

func NewGate(catalog *Catalog) *Gate {
	return &Gate{catalog: catalog}
}

func (g *Gate) Catalog() *Catalog {
	return g.catalog
}

// CanPerform is pure. Unknown actions are never permitted.
func (g *Gate) CanPerform(action Action, tier Tier, usage Usage) bool {
	l := tier.Limits
	switch action {
	case ActionAssignmentCreation:
		return withinLimit(l.MaxAssignments, usage.Assignments)
	case ActionCourseCreation:
		return withinLimit(l.MaxCourses, usage.Courses)
	case ActionRealtimeSync:
		return l.SyncFrequency == SyncRealtime
	case ActionCustomThemes:
		return l.Themes.All
	case ActionAnalytics:
		return l.Analytics
	case ActionCloudBackup:
		return l.CloudBackup
	case ActionTeamCollaboration:
		return l.TeamMembers > 0
	default:
		return false
	}
}

// Check returns an *EntitlementError carrying an upgrade message when the action is denied.
func (g *Gate) Check(action Action, tier Tier, usage Usage) error {
	if g.CanPerform(action, tier, usage) {
		return nil
	}
	return &EntitlementError{
		Action:  action,
		Tier:    tier.Name,
		Message: g.DescribeUpgrade(action, tier),
	}
}

// CheckTheme permits themes listed by the tier, or any theme when the tier allows all.
func (g *Gate) CheckTheme(theme string, tier Tier) error {
	if tier.Limits.Themes.Allows(theme) {
		return nil
	}
	return &EntitlementError{
		Action:  ActionCustomThemes,
		Tier:    tier.Name,
		Message: g.DescribeUpgrade(ActionCustomThemes, tier),
	}
}

// UpgradeTarget returns the lowest-ranked tier above tier that permits action.
func (g *Gate) UpgradeTarget(action Action, tier Tier) (Tier, bool) {
	// usage sits at the current cap, so only a strictly larger cap permits it
	atCap := Usage{Assignments: tier.Limits.MaxAssignments, Courses: tier.Limits.MaxCourses}
	for _, candidate := range g.catalog.Above(tier) {
		if g.CanPerform(action, candidate, atCap) {
			return candidate, true
		}
	}
	return Tier{}, false
}

func (g *Gate) DescribeUpgrade(action Action, tier Tier) string {
	target, ok := g.UpgradeTarget(action, tier)
	if !ok {
		return "Upgrade for more features!"
	}
	name := target.DisplayName

	switch action {
	case ActionAssignmentCreation:
		return fmt.Sprintf("You've reached the limit of %d assignments. Upgrade to %s for %s!",
			tier.Limits.MaxAssignments, name, capPhrase(target.Limits.MaxAssignments, "assignments"))
	case ActionCourseCreation:
		return fmt.Sprintf("You've reached the limit of %d courses. Upgrade to %s for %s!",
			tier.Limits.MaxCourses, name, capPhrase(target.Limits.MaxCourses, "courses"))
	case ActionRealtimeSync:
		return fmt.Sprintf("Upgrade to %s for real-time sync with Canvas and Google Classroom!", name)
	case ActionCustomThemes:
		return fmt.Sprintf("Upgrade to %s to unlock custom themes and backgrounds!", name)
	case ActionAnalytics:
		return fmt.Sprintf("Upgrade to %s for advanced analytics and progress tracking!", name)
	case ActionCloudBackup:
		return fmt.Sprintf("Upgrade to %s for cloud backup and multi-device sync!", name)
	case ActionTeamCollaboration:
		return fmt.Sprintf("Upgrade to %s for team collaboration!", name)
	}
	return "Upgrade for more features!"
}

func capPhrase(limit int, noun string) string {
	if limit == Unlimited {
		return "unlimited " + noun
	}
	return fmt.Sprintf("up to %d %s", limit, noun)
}

// SyncInterval is the minimum time between provider syncs on tier.
func SyncInterval(tier Tier) time.Duration {
	if tier.Limits.SyncFrequency == SyncRealtime {
		return 0
	}
	return 24 * time.Hour
}

// Flags reports every action the tier permits at the given usage.
func (g *Gate) Flags(tier Tier, usage Usage) map[Action]bool {
	flags := make(map[Action]bool, len(Actions))
	for _, a := range Actions {
		flags[a] = g.CanPerform(a, tier, usage)
	}
	return flags
}
