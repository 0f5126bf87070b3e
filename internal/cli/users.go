package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ErlanBelekov/docgate/internal/infrastructure/store"
	"github.com/spf13/cobra"
)

func newUsersCmd(open OpenFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect registered users",
	}

	var limit int
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List users, most recent sign-in first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, open, func(ctx context.Context, st *store.Store) error {
				users, err := st.Users.List(ctx, limit)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "EMAIL\tENTITY\tLAST LOGIN")
				for _, u := range users {
					entity, lastLogin := "-", "never"
					if u.Entity != nil && *u.Entity != "" {
						entity = *u.Entity
					}
					if u.LastLoginAt != nil {
						lastLogin = u.LastLoginAt.UTC().Format(time.RFC3339)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Email, entity, lastLogin)
				}
				return tw.Flush()
			})
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of users to show")

	cmd.AddCommand(list)
	return cmd
}
