// Package accesscontrol resolves effective access levels for users and
// applications from individual grants, group-inherited grants, and
// application flags.
package accesscontrol

import (
	"sort"

	"github.com/apphubio/api/pkg/domain/application"
	"github.com/apphubio/api/pkg/domain/group"
	"github.com/apphubio/api/pkg/domain/permission"
	"github.com/apphubio/api/pkg/domain/shared"
)

// Snapshot is the full permission state needed to resolve one user's access.
// It is a point-in-time copy; the resolver never mutates it and never goes
// back to storage.
type Snapshot struct {
	// Applications is the full application catalog.
	Applications []*application.Application
	// Grants are the user's individual permission records.
	Grants []*permission.Grant
	// Memberships are the IDs of the groups the user belongs to.
	Memberships []shared.ID
	// GroupGrants are the grants of all groups; grants of groups the user
	// is not a member of are ignored.
	GroupGrants []*group.Grant
}

// ResolvedApp is one application with the user's effective access level and
// the rule that produced it.
type ResolvedApp struct {
	Application *application.Application
	Level       permission.AccessLevel
	Source      permission.Source
}

// Accessible reports whether the user can open the application.
func (r ResolvedApp) Accessible() bool {
	return r.Level.AllowsAccess()
}

// Resolver computes effective access levels. It is a pure computation over
// a Snapshot; all mutation happens elsewhere and requires a fresh snapshot
// to be observed.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ResolveUserApps resolves the effective access level for every application
// in the snapshot, ordered by (tier, display order, name).
//
// Precedence per application:
//  1. Inactive applications are forced to locked regardless of any grant.
//  2. An individual grant wins, including an explicit locked override that
//     suppresses group grants and the public floor.
//  3. Otherwise the most permissive grant among the user's groups wins.
//  4. Otherwise a public application grants viewer.
//  5. Otherwise the default-deny applies: locked.
//
// A zero userID cannot be resolved and yields the safe-deny result set.
func (r *Resolver) ResolveUserApps(userID shared.ID, snap Snapshot) []ResolvedApp {
	if userID.IsZero() {
		return SafeDeny(snap.Applications)
	}

	individual := make(map[shared.ID]*permission.Grant, len(snap.Grants))
	for _, g := range snap.Grants {
		if g.UserID().Equals(userID) {
			individual[g.ApplicationID()] = g
		}
	}

	memberOf := make(map[shared.ID]struct{}, len(snap.Memberships))
	for _, id := range snap.Memberships {
		memberOf[id] = struct{}{}
	}

	// Best group grant per application among the user's groups.
	groupLevel := make(map[shared.ID]permission.AccessLevel)
	for _, g := range snap.GroupGrants {
		if _, ok := memberOf[g.GroupID()]; !ok {
			continue
		}
		appID := g.ApplicationID()
		if current, ok := groupLevel[appID]; !ok || g.Level().MorePermissiveThan(current) {
			groupLevel[appID] = g.Level()
		}
	}

	result := make([]ResolvedApp, 0, len(snap.Applications))
	for _, app := range snap.Applications {
		result = append(result, r.resolveOne(app, individual[app.ID()], groupLevel))
	}
	sortResolved(result)
	return result
}

// ResolveApp resolves a single application from the snapshot. Returns false
// if the application is not in the snapshot.
func (r *Resolver) ResolveApp(userID, applicationID shared.ID, snap Snapshot) (ResolvedApp, bool) {
	for _, resolved := range r.ResolveUserApps(userID, snap) {
		if resolved.Application.ID().Equals(applicationID) {
			return resolved, true
		}
	}
	return ResolvedApp{}, false
}

func (r *Resolver) resolveOne(
	app *application.Application,
	grant *permission.Grant,
	groupLevel map[shared.ID]permission.AccessLevel,
) ResolvedApp {
	// Hard gate: inactive applications are inaccessible to everyone.
	if !app.IsActive() {
		return ResolvedApp{Application: app, Level: permission.AccessLocked, Source: permission.SourceDefault}
	}

	// Individual override wins, explicit locked included.
	if grant != nil {
		return ResolvedApp{Application: app, Level: grant.Level(), Source: permission.SourceIndividual}
	}

	if level, ok := groupLevel[app.ID()]; ok {
		// The public floor lifts a group locked back to viewer; only an
		// individual locked can shut a public application.
		if app.IsPublic() && permission.AccessViewer.MorePermissiveThan(level) {
			return ResolvedApp{Application: app, Level: permission.AccessViewer, Source: permission.SourcePublic}
		}
		return ResolvedApp{Application: app, Level: level, Source: permission.SourceGroup}
	}

	if app.IsPublic() {
		return ResolvedApp{Application: app, Level: permission.AccessViewer, Source: permission.SourcePublic}
	}

	return ResolvedApp{Application: app, Level: permission.AccessLocked, Source: permission.SourceDefault}
}

// SafeDeny returns the degraded result set: every application locked with
// the default source. Used when the authoritative state cannot be loaded;
// denying access is preferred over silently granting it.
func SafeDeny(apps []*application.Application) []ResolvedApp {
	result := make([]ResolvedApp, 0, len(apps))
	for _, app := range apps {
		result = append(result, ResolvedApp{
			Application: app,
			Level:       permission.AccessLocked,
			Source:      permission.SourceDefault,
		})
	}
	sortResolved(result)
	return result
}

// OpenAccess returns the no-access-control result set: every active
// application fully accessible. This exists for local development and demo
// setups without a configured backend and must never be reachable in
// production.
func OpenAccess(apps []*application.Application) []ResolvedApp {
	result := make([]ResolvedApp, 0, len(apps))
	for _, app := range apps {
		level := permission.AccessEditor
		if !app.IsActive() {
			level = permission.AccessLocked
		}
		result = append(result, ResolvedApp{
			Application: app,
			Level:       level,
			Source:      permission.SourceDefault,
		})
	}
	sortResolved(result)
	return result
}

func sortResolved(apps []ResolvedApp) {
	sort.SliceStable(apps, func(i, j int) bool {
		a, b := apps[i].Application, apps[j].Application
		if a.Tier() != b.Tier() {
			return a.Tier() == application.TierPrimary
		}
		if a.DisplayOrder() != b.DisplayOrder() {
			return a.DisplayOrder() < b.DisplayOrder()
		}
		return a.Name() < b.Name()
	})
}
