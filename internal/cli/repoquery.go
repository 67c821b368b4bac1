package cli

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/repoq/pkg/advisory"
	"github.com/glorpus-work/repoq/pkg/nevra"
	"github.com/glorpus-work/repoq/pkg/query"
)

type repoqueryOptions struct {
	installed     bool
	available     bool
	userInstalled bool
	leaves        bool
	duplicates    bool
	unneeded      bool
	extras        bool
	upgrades      bool
	downgrades    bool
	recent        bool
	srpm          bool
	exactDeps     bool
	ignoreCase    bool
	latestLimit   int

	arches  []string
	repoIDs []string
	files   []string

	whatProvides    []string
	whatRequires    []string
	whatDepends     []string
	whatConflicts   []string
	whatObsoletes   []string
	whatRecommends  []string
	whatSuggests    []string
	whatEnhances    []string
	whatSupplements []string

	advisories         []string
	advisorySeverities []string
	security           bool
	bugfix             bool
}

// NewRepoqueryCmd creates the repoquery command.
func NewRepoqueryCmd() *cobra.Command {
	opts := &repoqueryOptions{}

	cmd := &cobra.Command{
		Use:   "repoquery [pkg-spec...]",
		Short: "Search for packages matching keywords or dependencies",
		Long: `Search configured repositories and the installed system for packages.

Without package specs the whole package universe is listed. Specs are
resolved as NEVRA forms first, then as provided capabilities, then as
file names. Local package archives given as specs are loaded into the
command line repository and matched literally.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepoquery(cmd, args, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.installed, "installed", false, "limit to installed packages")
	flags.BoolVar(&opts.available, "available", false, "limit to available packages")
	flags.BoolVar(&opts.userInstalled, "userinstalled", false, "limit to packages installed by the user")
	flags.BoolVar(&opts.leaves, "leaves", false, "limit to installed packages nothing depends on")
	flags.BoolVar(&opts.duplicates, "duplicates", false, "limit to installed packages with multiple versions")
	flags.BoolVar(&opts.unneeded, "unneeded", false, "limit to installed packages no user-installed package needs")
	flags.BoolVar(&opts.extras, "extras", false, "limit to installed packages absent from all repositories")
	flags.BoolVar(&opts.upgrades, "upgrades", false, "limit to available upgrades of installed packages")
	flags.BoolVar(&opts.downgrades, "downgrades", false, "limit to available downgrades of installed packages")
	flags.BoolVar(&opts.recent, "recent", false, "limit to recently built packages")
	flags.BoolVar(&opts.srpm, "srpm", false, "report the source packages the results were built from")
	flags.BoolVar(&opts.exactDeps, "exactdeps", false, "match dependency capabilities literally, without package name expansion")
	flags.BoolVarP(&opts.ignoreCase, "ignore-case", "i", false, "ignore case when matching package specs")
	flags.IntVar(&opts.latestLimit, "latest-limit", 0, "keep only the N highest versions per name and arch (negative N drops the N lowest)")

	flags.StringSliceVar(&opts.arches, "arch", nil, "limit to packages of the given architectures")
	flags.StringSliceVar(&opts.repoIDs, "repoid", nil, "limit to packages from the given repositories")
	flags.StringSliceVarP(&opts.files, "file", "f", nil, "limit to packages owning the given files")

	flags.StringSliceVar(&opts.whatProvides, "whatprovides", nil, "limit to packages providing a capability")
	flags.StringSliceVar(&opts.whatRequires, "whatrequires", nil, "limit to packages requiring a capability or package")
	flags.StringSliceVar(&opts.whatDepends, "whatdepends", nil, "limit to packages depending on a capability or package in any way")
	flags.StringSliceVar(&opts.whatConflicts, "whatconflicts", nil, "limit to packages conflicting with a capability or package")
	flags.StringSliceVar(&opts.whatObsoletes, "whatobsoletes", nil, "limit to packages obsoleting a capability")
	flags.StringSliceVar(&opts.whatRecommends, "whatrecommends", nil, "limit to packages recommending a capability or package")
	flags.StringSliceVar(&opts.whatSuggests, "whatsuggests", nil, "limit to packages suggesting a capability or package")
	flags.StringSliceVar(&opts.whatEnhances, "whatenhances", nil, "limit to packages enhancing a capability or package")
	flags.StringSliceVar(&opts.whatSupplements, "whatsupplements", nil, "limit to packages supplementing a capability or package")

	flags.StringSliceVar(&opts.advisories, "advisory", nil, "limit to packages referenced by the given advisories")
	flags.StringSliceVar(&opts.advisorySeverities, "advisory-severity", nil, "limit to packages referenced by advisories of the given severities")
	flags.BoolVar(&opts.security, "security", false, "limit to packages referenced by security advisories")
	flags.BoolVar(&opts.bugfix, "bugfix", false, "limit to packages referenced by bugfix advisories")

	return cmd
}

func runRepoquery(cmd *cobra.Command, args []string, opts *repoqueryOptions) error {
	if err := query.CheckExactDepsUsage(opts.exactDeps, opts.whatRequires, opts.whatDepends); err != nil {
		return err
	}

	b, err := newSession()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := b.Lock(ctx); err != nil {
		return err
	}
	defer b.Unlock()

	s := b.Sack()
	if opts.srpm {
		if err := s.EnableSourceRepos(); err != nil {
			return err
		}
	}

	if err := s.UpdateAndLoadEnabledRepos(ctx, true); err != nil {
		return fmt.Errorf("failed to load repositories: %w", err)
	}
	for id, repoErr := range s.Failures() {
		fmt.Fprintf(os.Stderr, "Warning: repository %s skipped: %v\n", id, repoErr)
	}

	if needsFilelists(args, opts) {
		if err := s.LoadFilelists(ctx); err != nil {
			return fmt.Errorf("failed to load file lists: %w", err)
		}
	}

	cmdline, err := s.AddCmdlinePackages(ctx, args)
	if err != nil {
		return err
	}

	cfg := b.Config()
	q := query.New(b.Pool(), true)

	if opts.installed {
		q.FilterInstalled()
	}
	if opts.available {
		q.FilterAvailable()
	}
	if opts.userInstalled {
		q.FilterUserInstalled()
	}
	if opts.leaves {
		q.FilterLeaves()
	}
	if opts.duplicates {
		q.FilterDuplicates(cfg.Settings.InstallonlyPkgs)
	}
	if opts.unneeded {
		q.FilterUnneeded(cfg.Settings.ProtectedPackages)
	}
	if opts.extras {
		q.FilterExtras()
	}
	if opts.upgrades {
		q.FilterUpgrades()
	}
	if opts.downgrades {
		q.FilterDowngrades()
	}
	if opts.recent {
		since := time.Now().AddDate(0, 0, -cfg.Settings.RecentDays).Unix()
		q.FilterRecent(since)
	}

	if len(opts.arches) > 0 {
		q.FilterArch(nevra.CmpGlob, opts.arches...)
	}
	if len(opts.repoIDs) > 0 {
		q.FilterRepoID(nevra.CmpGlob, opts.repoIDs...)
	}
	if len(opts.files) > 0 {
		q.FilterFile(nevra.CmpGlob, opts.files...)
	}

	if len(opts.whatProvides) > 0 {
		q.FilterWhatProvides(opts.whatProvides)
	}
	if len(opts.whatRequires) > 0 {
		q.FilterWhatRequires(opts.whatRequires, opts.exactDeps)
	}
	if len(opts.whatDepends) > 0 {
		q.FilterWhatDepends(opts.whatDepends, opts.exactDeps)
	}
	if len(opts.whatConflicts) > 0 {
		q.FilterWhatConflicts(opts.whatConflicts)
	}
	if len(opts.whatObsoletes) > 0 {
		q.FilterWhatObsoletes(opts.whatObsoletes)
	}
	if len(opts.whatRecommends) > 0 {
		q.FilterWhatRecommends(opts.whatRecommends)
	}
	if len(opts.whatSuggests) > 0 {
		q.FilterWhatSuggests(opts.whatSuggests)
	}
	if len(opts.whatEnhances) > 0 {
		q.FilterWhatEnhances(opts.whatEnhances)
	}
	if len(opts.whatSupplements) > 0 {
		q.FilterWhatSupplements(opts.whatSupplements)
	}

	// Packages at or above the referenced fix version count as covered by
	// the advisory.
	if advs, ok := selectAdvisories(b.Pool().Advisories(), opts); ok {
		q.FilterAdvisories(advs, nevra.CmpGTE)
	}

	settings := query.DefaultResolveSpecSettings()
	settings.IgnoreCase = opts.ignoreCase
	matched, unmatched := q.MatchSpecs(args, cmdline, settings)
	for _, spec := range unmatched {
		fmt.Fprintf(os.Stderr, "No match for argument: %s\n", spec)
	}

	if opts.latestLimit != 0 {
		matched.FilterLatestEVR(opts.latestLimit)
	}
	// The source transform runs last so every other filter, including the
	// latest-limit grouping, applies to the binary packages.
	if opts.srpm {
		matched.FilterSourceRPMs(query.New(b.Pool(), true))
	}

	for _, line := range formatPackages(matched) {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}

// needsFilelists reports whether any argument or capability can only be
// answered with file ownership data loaded.
func needsFilelists(args []string, opts *repoqueryOptions) bool {
	if len(opts.files) > 0 {
		return true
	}
	patterns := make([]string, 0, len(args))
	patterns = append(patterns, args...)
	patterns = append(patterns, opts.whatProvides...)
	patterns = append(patterns, opts.whatRequires...)
	patterns = append(patterns, opts.whatDepends...)
	for _, pattern := range patterns {
		if nevra.IsFilePattern(pattern) {
			return true
		}
	}
	return false
}

// selectAdvisories applies the advisory narrowing flags and reports
// whether an advisory filter was requested at all.
func selectAdvisories(advs advisory.Set, opts *repoqueryOptions) (advisory.Set, bool) {
	requested := len(opts.advisories) > 0 || len(opts.advisorySeverities) > 0 || opts.security || opts.bugfix
	if !requested {
		return nil, false
	}
	if len(opts.advisories) > 0 {
		advs = advs.FilterName(opts.advisories...)
	}
	if len(opts.advisorySeverities) > 0 {
		advs = advs.FilterSeverity(opts.advisorySeverities...)
	}
	var kinds []advisory.Kind
	if opts.security {
		kinds = append(kinds, advisory.KindSecurity)
	}
	if opts.bugfix {
		kinds = append(kinds, advisory.KindBugfix)
	}
	if len(kinds) > 0 {
		advs = advs.FilterKind(kinds...)
	}
	return advs, true
}

// formatPackages renders the result set as sorted, deduplicated full
// NEVRA strings.
func formatPackages(q *query.Query) []string {
	seen := make(map[string]struct{})
	lines := make([]string, 0, q.Size())
	for _, pkg := range q.Packages() {
		line := pkg.String()
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return lines
}
