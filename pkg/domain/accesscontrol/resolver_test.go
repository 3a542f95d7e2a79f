package accesscontrol_test

import (
	"testing"
	"time"

	"github.com/apphubio/api/pkg/domain/accesscontrol"
	"github.com/apphubio/api/pkg/domain/application"
	"github.com/apphubio/api/pkg/domain/group"
	"github.com/apphubio/api/pkg/domain/permission"
	"github.com/apphubio/api/pkg/domain/shared"
)

func testApp(t *testing.T, name string, opts ...func(*application.Application)) *application.Application {
	t.Helper()
	app, err := application.New(name, "https://"+name+".internal.example", application.TierPrimary)
	if err != nil {
		t.Fatalf("failed to create application: %v", err)
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

func asPublic(a *application.Application) { a.SetPublic(true) }

func asInactive(a *application.Application) { a.Deactivate() }

func individualGrant(t *testing.T, userID, appID shared.ID, level permission.AccessLevel) *permission.Grant {
	t.Helper()
	g, err := permission.NewGrant(userID, appID, level, nil)
	if err != nil {
		t.Fatalf("failed to create grant: %v", err)
	}
	return g
}

func groupGrant(t *testing.T, groupID, appID shared.ID, level permission.AccessLevel) *group.Grant {
	t.Helper()
	g, err := group.NewGrant(groupID, appID, level, nil)
	if err != nil {
		t.Fatalf("failed to create group grant: %v", err)
	}
	return g
}

func levelOf(t *testing.T, resolved []accesscontrol.ResolvedApp, appID shared.ID) accesscontrol.ResolvedApp {
	t.Helper()
	for _, r := range resolved {
		if r.Application.ID().Equals(appID) {
			return r
		}
	}
	t.Fatalf("application %s not in resolved set", appID)
	return accesscontrol.ResolvedApp{}
}

func TestResolver_DefaultDeny(t *testing.T) {
	resolver := accesscontrol.NewResolver()
	userID := shared.NewID()
	app := testApp(t, "wiki")

	resolved := resolver.ResolveUserApps(userID, accesscontrol.Snapshot{
		Applications: []*application.Application{app},
	})

	r := levelOf(t, resolved, app.ID())
	if r.Level != permission.AccessLocked {
		t.Errorf("expected locked, got %s", r.Level)
	}
	if r.Source != permission.SourceDefault {
		t.Errorf("expected default source, got %s", r.Source)
	}
}

func TestResolver_IndividualOverridesGroup(t *testing.T) {
	resolver := accesscontrol.NewResolver()
	userID := shared.NewID()
	groupID := shared.NewID()
	app := testApp(t, "crm")

	tests := []struct {
		name       string
		individual permission.AccessLevel
		group      permission.AccessLevel
		want       permission.AccessLevel
	}{
		{"editor over group viewer", permission.AccessEditor, permission.AccessViewer, permission.AccessEditor},
		{"viewer over group editor", permission.AccessViewer, permission.AccessEditor, permission.AccessViewer},
		{"explicit locked over group editor", permission.AccessLocked, permission.AccessEditor, permission.AccessLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved := resolver.ResolveUserApps(userID, accesscontrol.Snapshot{
				Applications: []*application.Application{app},
				Grants:       []*permission.Grant{individualGrant(t, userID, app.ID(), tt.individual)},
				Memberships:  []shared.ID{groupID},
				GroupGrants:  []*group.Grant{groupGrant(t, groupID, app.ID(), tt.group)},
			})

			r := levelOf(t, resolved, app.ID())
			if r.Level != tt.want {
				t.Errorf("expected %s, got %s", tt.want, r.Level)
			}
			if r.Source != permission.SourceIndividual {
				t.Errorf("expected individual source, got %s", r.Source)
			}
		})
	}
}

func TestResolver_MostPermissiveGroupWins(t *testing.T) {
	resolver := accesscontrol.NewResolver()
	userID := shared.NewID()
	groupA := shared.NewID()
	groupB := shared.NewID()
	app := testApp(t, "reports")

	resolved := resolver.ResolveUserApps(userID, accesscontrol.Snapshot{
		Applications: []*application.Application{app},
		Memberships:  []shared.ID{groupA, groupB},
		GroupGrants: []*group.Grant{
			groupGrant(t, groupA, app.ID(), permission.AccessViewer),
			groupGrant(t, groupB, app.ID(), permission.AccessEditor),
		},
	})

	r := levelOf(t, resolved, app.ID())
	if r.Level != permission.AccessEditor {
		t.Errorf("expected editor from most permissive group, got %s", r.Level)
	}
	if r.Source != permission.SourceGroup {
		t.Errorf("expected group source, got %s", r.Source)
	}
}

func TestResolver_IgnoresGrantsOfOtherGroups(t *testing.T) {
	resolver := accesscontrol.NewResolver()
	userID := shared.NewID()
	otherGroup := shared.NewID()
	app := testApp(t, "billing")

	resolved := resolver.ResolveUserApps(userID, accesscontrol.Snapshot{
		Applications: []*application.Application{app},
		GroupGrants:  []*group.Grant{groupGrant(t, otherGroup, app.ID(), permission.AccessEditor)},
	})

	r := levelOf(t, resolved, app.ID())
	if r.Level != permission.AccessLocked || r.Source != permission.SourceDefault {
		t.Errorf("expected locked/default, got %s/%s", r.Level, r.Source)
	}
}

func TestResolver_InactiveAppAlwaysLocked(t *testing.T) {
	resolver := accesscontrol.NewResolver()
	userID := shared.NewID()
	app := testApp(t, "legacy", asInactive)

	resolved := resolver.ResolveUserApps(userID, accesscontrol.Snapshot{
		Applications: []*application.Application{app},
		Grants:       []*permission.Grant{individualGrant(t, userID, app.ID(), permission.AccessEditor)},
	})

	r := levelOf(t, resolved, app.ID())
	if r.Level != permission.AccessLocked {
		t.Errorf("inactive application resolved to %s, want locked", r.Level)
	}
	if r.Accessible() {
		t.Error("inactive application must not be accessible")
	}
}

func TestResolver_PublicAppFloor(t *testing.T) {
	resolver := accesscontrol.NewResolver()
	userID := shared.NewID()
	groupID := shared.NewID()
	app := testApp(t, "status", asPublic)

	t.Run("viewer without any grant", func(t *testing.T) {
		resolved := resolver.ResolveUserApps(userID, accesscontrol.Snapshot{
			Applications: []*application.Application{app},
		})
		r := levelOf(t, resolved, app.ID())
		if r.Level != permission.AccessViewer || r.Source != permission.SourcePublic {
			t.Errorf("expected viewer/public, got %s/%s", r.Level, r.Source)
		}
	})

	t.Run("group editor beats public floor", func(t *testing.T) {
		resolved := resolver.ResolveUserApps(userID, accesscontrol.Snapshot{
			Applications: []*application.Application{app},
			Memberships:  []shared.ID{groupID},
			GroupGrants:  []*group.Grant{groupGrant(t, groupID, app.ID(), permission.AccessEditor)},
		})
		r := levelOf(t, resolved, app.ID())
		if r.Level != permission.AccessEditor || r.Source != permission.SourceGroup {
			t.Errorf("expected editor/group, got %s/%s", r.Level, r.Source)
		}
	})

	t.Run("group locked lifted by public floor", func(t *testing.T) {
		resolved := resolver.ResolveUserApps(userID, accesscontrol.Snapshot{
			Applications: []*application.Application{app},
			Memberships:  []shared.ID{groupID},
			GroupGrants:  []*group.Grant{groupGrant(t, groupID, app.ID(), permission.AccessLocked)},
		})
		r := levelOf(t, resolved, app.ID())
		if r.Level != permission.AccessViewer || r.Source != permission.SourcePublic {
			t.Errorf("expected viewer/public, got %s/%s", r.Level, r.Source)
		}
	})

	t.Run("individual locked shuts a public app", func(t *testing.T) {
		resolved := resolver.ResolveUserApps(userID, accesscontrol.Snapshot{
			Applications: []*application.Application{app},
			Grants:       []*permission.Grant{individualGrant(t, userID, app.ID(), permission.AccessLocked)},
		})
		r := levelOf(t, resolved, app.ID())
		if r.Level != permission.AccessLocked || r.Source != permission.SourceIndividual {
			t.Errorf("expected locked/individual, got %s/%s", r.Level, r.Source)
		}
	})
}

func TestResolver_ZeroUserIDSafeDenies(t *testing.T) {
	resolver := accesscontrol.NewResolver()
	app := testApp(t, "wiki", asPublic)

	resolved := resolver.ResolveUserApps(shared.ID{}, accesscontrol.Snapshot{
		Applications: []*application.Application{app},
	})

	r := levelOf(t, resolved, app.ID())
	if r.Level != permission.AccessLocked || r.Source != permission.SourceDefault {
		t.Errorf("expected locked/default for unresolvable user, got %s/%s", r.Level, r.Source)
	}
}

func TestResolver_Ordering(t *testing.T) {
	resolver := accesscontrol.NewResolver()
	userID := shared.NewID()

	second := testApp(t, "bbb")
	second.SetDisplayOrder(2)
	first := testApp(t, "aaa")
	first.SetDisplayOrder(1)
	secondary, err := application.New("zzz", "https://zzz.internal.example", application.TierSecondary)
	if err != nil {
		t.Fatalf("failed to create application: %v", err)
	}

	resolved := resolver.ResolveUserApps(userID, accesscontrol.Snapshot{
		Applications: []*application.Application{secondary, second, first},
	})

	gotNames := []string{
		resolved[0].Application.Name(),
		resolved[1].Application.Name(),
		resolved[2].Application.Name(),
	}
	wantNames := []string{"aaa", "bbb", "zzz"}
	for i := range wantNames {
		if gotNames[i] != wantNames[i] {
			t.Fatalf("order mismatch at %d: got %v, want %v", i, gotNames, wantNames)
		}
	}
}

// Scenario from the admin handbook: Alice inherits viewer on CRM through the
// Sales group, gets an individual editor override, then CRM is deactivated.
func TestResolver_GroupThenOverrideThenDeactivate(t *testing.T) {
	resolver := accesscontrol.NewResolver()
	alice := shared.NewID()
	sales := shared.NewID()
	crm := testApp(t, "crm")

	snap := accesscontrol.Snapshot{
		Applications: []*application.Application{crm},
		Memberships:  []shared.ID{sales},
		GroupGrants:  []*group.Grant{groupGrant(t, sales, crm.ID(), permission.AccessViewer)},
	}

	r := levelOf(t, resolver.ResolveUserApps(alice, snap), crm.ID())
	if r.Level != permission.AccessViewer || r.Source != permission.SourceGroup {
		t.Fatalf("step 1: expected viewer/group, got %s/%s", r.Level, r.Source)
	}

	snap.Grants = []*permission.Grant{individualGrant(t, alice, crm.ID(), permission.AccessEditor)}
	r = levelOf(t, resolver.ResolveUserApps(alice, snap), crm.ID())
	if r.Level != permission.AccessEditor || r.Source != permission.SourceIndividual {
		t.Fatalf("step 2: expected editor/individual, got %s/%s", r.Level, r.Source)
	}

	crm.Deactivate()
	r = levelOf(t, resolver.ResolveUserApps(alice, snap), crm.ID())
	if r.Level != permission.AccessLocked {
		t.Fatalf("step 3: expected locked after deactivation, got %s", r.Level)
	}
}

func TestSafeDeny(t *testing.T) {
	apps := []*application.Application{
		testApp(t, "crm", asPublic),
		testApp(t, "wiki"),
	}

	for _, r := range accesscontrol.SafeDeny(apps) {
		if r.Level != permission.AccessLocked {
			t.Errorf("safe deny resolved %s to %s, want locked", r.Application.Name(), r.Level)
		}
		if r.Source != permission.SourceDefault {
			t.Errorf("safe deny source %s, want default", r.Source)
		}
	}
}

func TestOpenAccess(t *testing.T) {
	active := testApp(t, "crm")
	inactive := testApp(t, "legacy", asInactive)

	resolved := accesscontrol.OpenAccess([]*application.Application{active, inactive})

	if r := levelOf(t, resolved, active.ID()); r.Level != permission.AccessEditor {
		t.Errorf("open access resolved active app to %s, want editor", r.Level)
	}
	if r := levelOf(t, resolved, inactive.ID()); r.Level != permission.AccessLocked {
		t.Errorf("open access resolved inactive app to %s, want locked", r.Level)
	}
}

func TestMostPermissive(t *testing.T) {
	if got := permission.MostPermissive(); got != permission.AccessLocked {
		t.Errorf("empty list resolved to %s, want locked", got)
	}
	if got := permission.MostPermissive(permission.AccessViewer, permission.AccessEditor, permission.AccessLocked); got != permission.AccessEditor {
		t.Errorf("got %s, want editor", got)
	}
}

func TestReconstituteGrantKeepsTimestamps(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(48 * time.Hour)
	id := shared.NewID()
	userID := shared.NewID()
	appID := shared.NewID()

	g := permission.ReconstituteGrant(id, userID, appID, permission.AccessViewer, nil, created, updated)
	if !g.CreatedAt().Equal(created) || !g.UpdatedAt().Equal(updated) {
		t.Error("reconstitute must not rewrite timestamps")
	}
}
