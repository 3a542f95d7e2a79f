package application

// Tier groups applications on the dashboard. Presentation only; it never
// influences permission resolution.
type Tier string

const (
	// TierPrimary applications are shown in the main dashboard grid.
	TierPrimary Tier = "primary"
	// TierSecondary applications are shown in the secondary section.
	TierSecondary Tier = "secondary"
)

// IsValid checks if the tier is a known value.
func (t Tier) IsValid() bool {
	return t == TierPrimary || t == TierSecondary
}

// String returns the string representation of the tier.
func (t Tier) String() string {
	return string(t)
}

// AccessStats aggregates how many users hold each effective level for an
// application. Admin dashboard read, not part of the authorization path.
type AccessStats struct {
	TotalUsers int `json:"total_users"`
	Editors    int `json:"editors"`
	Viewers    int `json:"viewers"`
	Locked     int `json:"locked"`
}
