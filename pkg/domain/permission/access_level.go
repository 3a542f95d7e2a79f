// Package permission defines access levels and individual permission grants
// for the application hub.
package permission

// AccessLevel represents the level of access a user has to an application.
type AccessLevel string

const (
	// AccessEditor grants full access to an application.
	AccessEditor AccessLevel = "editor"
	// AccessViewer grants read-only access to an application.
	AccessViewer AccessLevel = "viewer"
	// AccessLocked denies access to an application.
	AccessLocked AccessLevel = "locked"
)

// IsValid checks if the access level is one of the three known values.
func (l AccessLevel) IsValid() bool {
	switch l {
	case AccessEditor, AccessViewer, AccessLocked:
		return true
	}
	return false
}

// String returns the string representation of the access level.
func (l AccessLevel) String() string {
	return string(l)
}

// Rank returns the numeric permissiveness of the level for comparisons.
// editor > viewer > locked.
func (l AccessLevel) Rank() int {
	switch l {
	case AccessEditor:
		return 2
	case AccessViewer:
		return 1
	default:
		return 0
	}
}

// MorePermissiveThan reports whether l grants strictly more access than other.
func (l AccessLevel) MorePermissiveThan(other AccessLevel) bool {
	return l.Rank() > other.Rank()
}

// AllowsAccess reports whether the level grants any access at all.
func (l AccessLevel) AllowsAccess() bool {
	return l == AccessEditor || l == AccessViewer
}

// ParseAccessLevel parses a string into an AccessLevel.
func ParseAccessLevel(s string) (AccessLevel, bool) {
	l := AccessLevel(s)
	return l, l.IsValid()
}

// MostPermissive returns the most permissive of the given levels.
// Returns AccessLocked when the list is empty.
func MostPermissive(levels ...AccessLevel) AccessLevel {
	result := AccessLocked
	for _, l := range levels {
		if l.MorePermissiveThan(result) {
			result = l
		}
	}
	return result
}

// Source identifies which rule produced an effective access level.
type Source string

const (
	// SourceIndividual means an explicit per-user grant decided the level.
	SourceIndividual Source = "individual"
	// SourceGroup means a group grant decided the level.
	SourceGroup Source = "group"
	// SourcePublic means the application's public flag decided the level.
	SourcePublic Source = "public"
	// SourceDefault means no rule matched and the default-deny applied.
	SourceDefault Source = "default"
)

// String returns the string representation of the source.
func (s Source) String() string {
	return string(s)
}
