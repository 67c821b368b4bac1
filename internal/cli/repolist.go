package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewRepolistCmd creates the repolist command.
func NewRepolistCmd() *cobra.Command {
	var showAll bool

	cmd := &cobra.Command{
		Use:   "repolist",
		Short: "List configured repositories",
		Long: `List the repositories known to the current configuration.

By default only enabled repositories are shown. Use --all to include
disabled ones.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepolist(cmd, showAll)
		},
	}

	cmd.Flags().BoolVar(&showAll, "all", false, "include disabled repositories")

	return cmd
}

func runRepolist(cmd *cobra.Command, showAll bool) error {
	b, err := newSession()
	if err != nil {
		return err
	}

	repos := b.Sack().Repos()
	if !showAll {
		repos = b.Sack().EnabledRepos()
	}
	if len(repos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No repositories configured")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-25s %-12s %-10s %s\n", "REPO ID", "KIND", "STATUS", "SOURCE")
	fmt.Fprintln(out, strings.Repeat("-", 70))
	for _, r := range repos {
		status := "disabled"
		if r.Enabled() {
			status = "enabled"
		}
		source := r.Config().URL
		if source == "" {
			source = r.Config().Path
		}
		fmt.Fprintf(out, "%-25s %-12s %-10s %s\n", r.ID(), r.Kind(), status, source)
	}
	return nil
}
