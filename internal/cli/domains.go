package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ErlanBelekov/docgate/internal/domain"
	"github.com/ErlanBelekov/docgate/internal/infrastructure/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// allowListFile is the YAML accepted by "domains import".
type allowListFile struct {
	Domains []string `yaml:"domains"`
}

func newDomainsCmd(open OpenFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "domains",
		Aliases: []string{"domain"},
		Short:   "Manage the email domain allow-list",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List allowed domains",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, open, func(ctx context.Context, st *store.Store) error {
					list, err := st.Domains.List(ctx)
					if err != nil {
						return err
					}
					for _, d := range list {
						fmt.Fprintln(cmd.OutOrStdout(), d)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:     "add <domain>...",
			Short:   "Allow one or more domains",
			Example: `  authctl domains add un.org undp.org`,
			Args:    cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return addDomains(cmd, open, args)
			},
		},
		&cobra.Command{
			Use:     "remove <domain>...",
			Aliases: []string{"rm"},
			Short:   "Remove one or more domains",
			Args:    cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				domains, err := normalizeDomains(args)
				if err != nil {
					return err
				}
				return withStore(cmd, open, func(ctx context.Context, st *store.Store) error {
					n, err := st.Domains.Remove(ctx, domains...)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed %d domain(s)\n", n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "import <file.yaml>",
			Short: "Allow every domain listed in a YAML file",
			Long: `Import reads a file of the form

  domains:
    - un.org
    - undp.org

and adds each entry. Domains already present are left alone.`,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				list, err := readAllowList(args[0])
				if err != nil {
					return err
				}
				return addDomains(cmd, open, list)
			},
		},
	)
	return cmd
}

func addDomains(cmd *cobra.Command, open OpenFunc, raw []string) error {
	domains, err := normalizeDomains(raw)
	if err != nil {
		return err
	}
	return withStore(cmd, open, func(ctx context.Context, st *store.Store) error {
		n, err := st.Domains.Add(ctx, domains...)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %d domain(s)\n", n)
		return nil
	})
}

func readAllowList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var f allowListFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Domains) == 0 {
		return nil, fmt.Errorf("%s: no domains listed", path)
	}
	return f.Domains, nil
}

// normalizeDomains rejects anything that could never match the domain part
// of an address, so a typo like "user@un.org" fails loudly.
func normalizeDomains(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	var errs []error
	for _, r := range raw {
		d := domain.NormalizeDomain(r)
		switch {
		case d == "":
			errs = append(errs, errors.New("empty domain"))
		case strings.ContainsAny(d, "@ /"):
			errs = append(errs, fmt.Errorf("invalid domain %q", r))
		default:
			out = append(out, d)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
