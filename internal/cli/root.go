// Package cli implements authctl, the admin tool for the allow-list and users.
package cli

import (
	"context"
	"fmt"

	"github.com/ErlanBelekov/docgate/config"
	"github.com/ErlanBelekov/docgate/internal/infrastructure/store"
	"github.com/spf13/cobra"
)

// OpenFunc opens the store a command works on.
type OpenFunc func(ctx context.Context) (*store.Store, error)

// OpenFromEnv opens the store described by DB_DRIVER, DATABASE_URL and DB_SCHEMA.
func OpenFromEnv(ctx context.Context) (*store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.DBDriver, cfg.DatabaseURL, cfg.DBSchema)
}

func NewRootCmd(open OpenFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "authctl",
		Short: "Manage the sign-in allow-list and users",
		Long: `authctl administers the magic-link sign-in database.

It reads the same DB_DRIVER, DATABASE_URL and DB_SCHEMA variables as the server.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newMigrateCmd(open),
		newDomainsCmd(open),
		newUsersCmd(open),
	)
	return root
}

// withStore opens the store, runs fn and closes the store again.
func withStore(cmd *cobra.Command, open OpenFunc, fn func(ctx context.Context, st *store.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()
	return fn(ctx, st)
}

func newMigrateCmd(open OpenFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, open, func(ctx context.Context, st *store.Store) error {
				if err := st.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", st.Driver)
				return nil
			})
		},
	}
}
