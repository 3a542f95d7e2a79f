// Package cmd implements the apphub-admin CLI commands.
//
// The CLI talks to the database directly, so it works even when the API
// is down or no admin account can log in anymore.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/apphubio/api/internal/config"
	"github.com/apphubio/api/internal/infra/postgres"
)

var version string

var rootCmd = &cobra.Command{
	Use:   "apphub-admin",
	Short: "Application hub administration CLI",
	Long: `apphub-admin manages the application hub directly through the database.

It covers the operations that must work without a functioning API:
bootstrapping the first admin account, recovering admin access, and
running schema migrations.

Connection settings come from the same environment variables the server
uses (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the CLI version from build flags.
func SetVersion(v string) {
	version = v
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("apphub-admin %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(listUsersCmd)
	rootCmd.AddCommand(migrateCmd)
}

// openDatabase loads configuration and connects to Postgres. The caller
// owns the returned connection.
func openDatabase() (*postgres.DB, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}
