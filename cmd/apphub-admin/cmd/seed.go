package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apphubio/api/internal/infra/postgres"
	"github.com/apphubio/api/pkg/domain/application"
	"github.com/apphubio/api/pkg/domain/group"
	"github.com/apphubio/api/pkg/domain/permission"
)

// demoApplications is the catalog installed by "apphub-admin seed".
var demoApplications = []struct {
	name   string
	desc   string
	icon   string
	color  string
	url    string
	tier   application.Tier
	public bool
}{
	{"Wiki", "Company knowledge base", "book-open", "#3B82F6", "https://wiki.internal.example.com", application.TierPrimary, true},
	{"Time Tracking", "Project time reporting", "clock", "#10B981", "https://time.internal.example.com", application.TierPrimary, false},
	{"CRM", "Customer relationship management", "users", "#F59E0B", "https://crm.internal.example.com", application.TierPrimary, false},
	{"Asset Register", "Hardware and license inventory", "archive", "#6366F1", "https://assets.internal.example.com", application.TierSecondary, false},
	{"Cafeteria Menu", "This week in the canteen", "coffee", "#EF4444", "https://menu.internal.example.com", application.TierSecondary, true},
}

var demoGroups = []struct {
	name  string
	desc  string
	color string
	// grants maps application name to the level the group conveys.
	grants map[string]permission.AccessLevel
}{
	{"Engineering", "Product development", "#3B82F6", map[string]permission.AccessLevel{
		"Time Tracking":  permission.AccessEditor,
		"Asset Register": permission.AccessViewer,
	}},
	{"Sales", "Commercial team", "#F59E0B", map[string]permission.AccessLevel{
		"CRM":           permission.AccessEditor,
		"Time Tracking": permission.AccessViewer,
	}},
	{"Contractors", "External staff", "#6B7280", map[string]permission.AccessLevel{
		"Time Tracking": permission.AccessViewer,
	}},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install a demo catalog of applications and groups",
	Long: `Install a small demo catalog: five applications, three groups, and
group grants wiring them together. Existing records with the same names
are left untouched, so the command is safe to rerun.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		appRepo := postgres.NewApplicationRepository(db)
		groupRepo := postgres.NewGroupRepository(db)

		appIDs, created, err := seedApplications(ctx, appRepo)
		if err != nil {
			return err
		}
		cmd.Printf("Applications: %d created, %d already present\n", created, len(demoApplications)-created)

		created, err = seedGroups(ctx, groupRepo, appIDs)
		if err != nil {
			return err
		}
		cmd.Printf("Groups: %d created, %d already present\n", created, len(demoGroups)-created)
		return nil
	},
}

func seedApplications(ctx context.Context, repo *postgres.ApplicationRepository) (map[string]*application.Application, int, error) {
	byName := make(map[string]*application.Application, len(demoApplications))
	created := 0

	existing, err := repo.List(ctx, application.DefaultListFilter())
	if err != nil {
		return nil, 0, err
	}
	for _, a := range existing {
		byName[a.Name()] = a
	}

	for i, d := range demoApplications {
		if _, ok := byName[d.name]; ok {
			continue
		}

		a, err := application.New(d.name, d.url, d.tier)
		if err != nil {
			return nil, 0, fmt.Errorf("seed application %s: %w", d.name, err)
		}
		a.UpdateDescription(d.desc)
		a.UpdateAppearance(d.icon, d.color)
		a.SetPublic(d.public)
		a.SetDisplayOrder(i)

		if err := repo.Create(ctx, a); err != nil {
			return nil, 0, fmt.Errorf("seed application %s: %w", d.name, err)
		}
		byName[d.name] = a
		created++
	}
	return byName, created, nil
}

func seedGroups(ctx context.Context, repo *postgres.GroupRepository, apps map[string]*application.Application) (int, error) {
	created := 0
	for _, d := range demoGroups {
		exists, err := repo.ExistsByName(ctx, d.name)
		if err != nil {
			return 0, err
		}
		if exists {
			continue
		}

		g, err := group.New(d.name)
		if err != nil {
			return 0, fmt.Errorf("seed group %s: %w", d.name, err)
		}
		g.UpdateDescription(d.desc)
		g.UpdateColor(d.color)
		if err := repo.Create(ctx, g); err != nil {
			return 0, fmt.Errorf("seed group %s: %w", d.name, err)
		}

		for appName, level := range d.grants {
			a, ok := apps[appName]
			if !ok {
				return 0, fmt.Errorf("seed group %s: unknown application %q", d.name, appName)
			}
			grant, err := group.NewGrant(g.ID(), a.ID(), level, nil)
			if err != nil {
				return 0, fmt.Errorf("seed group %s: %w", d.name, err)
			}
			if err := repo.UpsertGrant(ctx, grant); err != nil {
				return 0, fmt.Errorf("seed group %s: %w", d.name, err)
			}
		}
		created++
	}
	return created, nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
