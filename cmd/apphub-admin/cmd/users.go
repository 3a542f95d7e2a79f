package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/apphubio/api/internal/infra/postgres"
	"github.com/apphubio/api/pkg/domain/profile"
	"github.com/apphubio/api/pkg/password"
)

var (
	flagEmail    string
	flagPassword string
	flagFullName string
	flagActivate bool
	flagRole     string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	Long: `Create an administrator account directly in the database.

Use this to bootstrap a fresh installation or to regain access when no
admin can log in. The password is checked against the configured policy.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, cfg, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		hasher := password.New(password.WithPolicy(password.Policy{
			MinLength:      cfg.Auth.PasswordMinLength,
			RequireUpper:   cfg.Auth.PasswordRequireUpper,
			RequireLower:   cfg.Auth.PasswordRequireLower,
			RequireNumber:  cfg.Auth.PasswordRequireNumber,
			RequireSpecial: cfg.Auth.PasswordRequireSpecial,
		}))
		if err := hasher.Validate(flagPassword); err != nil {
			return err
		}
		hash, err := hasher.Hash(flagPassword)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		repo := postgres.NewProfileRepository(db)

		email := strings.ToLower(strings.TrimSpace(flagEmail))
		exists, err := repo.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("account %s already exists, use \"apphub-admin promote\" instead", email)
		}

		p, err := profile.NewWithPassword(email, flagFullName, hash)
		if err != nil {
			return err
		}
		if err := p.ChangeRole(profile.RoleAdmin); err != nil {
			return err
		}
		if err := repo.Create(ctx, p); err != nil {
			return err
		}

		cmd.Printf("Administrator %s created (%s)\n", email, p.ID())
		return nil
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Promote an existing account to administrator",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		repo := postgres.NewProfileRepository(db)

		email := strings.ToLower(strings.TrimSpace(flagEmail))
		p, err := repo.GetByEmail(ctx, email)
		if err != nil {
			return err
		}

		if err := p.ChangeRole(profile.RoleAdmin); err != nil {
			return err
		}
		if flagActivate {
			p.Activate()
		}
		if err := repo.Update(ctx, p); err != nil {
			return err
		}

		cmd.Printf("Account %s is now an administrator\n", email)
		if !p.IsActive() {
			cmd.Println("Warning: the account is deactivated, rerun with --activate to enable it")
		}
		return nil
	},
}

var listUsersCmd = &cobra.Command{
	Use:   "list-users",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		repo := postgres.NewProfileRepository(db)

		filter := profile.DefaultListFilter()
		filter.Limit = 1000
		if flagRole != "" {
			role := profile.Role(flagRole)
			if !role.IsValid() {
				return fmt.Errorf("invalid role %q", flagRole)
			}
			filter.Role = &role
		}

		profiles, err := repo.List(ctx, filter)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "EMAIL\tNAME\tROLE\tACTIVE\tLAST LOGIN")
		for _, p := range profiles {
			lastLogin := "never"
			if p.LastLoginAt() != nil {
				lastLogin = p.LastLoginAt().Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
				p.Email(), p.FullName(), p.Role(), p.IsActive(), lastLogin)
		}
		return w.Flush()
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&flagEmail, "email", "", "Email address of the new admin")
	createAdminCmd.Flags().StringVar(&flagPassword, "password", "", "Password for the new admin")
	createAdminCmd.Flags().StringVar(&flagFullName, "name", "", "Full name of the new admin")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
	_ = createAdminCmd.MarkFlagRequired("name")

	promoteCmd.Flags().StringVar(&flagEmail, "email", "", "Email address of the account to promote")
	promoteCmd.Flags().BoolVar(&flagActivate, "activate", false, "Also reactivate the account")
	_ = promoteCmd.MarkFlagRequired("email")

	listUsersCmd.Flags().StringVar(&flagRole, "role", "", "Filter by role (admin or user)")
}
