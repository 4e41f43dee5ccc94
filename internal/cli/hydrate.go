package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phantomsec/gibson/internal/hydrate"
)

func hydrateCmd() *cobra.Command {
	var (
		branch  string
		depth   int
		force   bool
		profile string
		quick, standard, advanced, deep, security bool
	)

	cmd := &cobra.Command{
		Use:   "hydrate <target>",
		Short: "Acquire a repository and run the analysis pipeline",
		Long: `Clones or copies the target into the storage root, detects its
technologies, runs the selected profile's analyzers, and writes the
analysis manifest.

The target may be a GitHub URL, an owner/repo shorthand, or a local
directory path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			mode := a.cfg.Settings.DefaultProfile
			for _, sel := range []struct {
				set  bool
				name string
			}{
				{quick, "quick"}, {standard, "standard"}, {advanced, "advanced"},
				{deep, "deep"}, {security, "security"},
			} {
				if sel.set {
					mode = sel.name
				}
			}
			if profile != "" {
				mode = profile
			}

			if depth == 0 {
				depth = a.cfg.Settings.CloneDepth
			}

			o, err := a.orchestrator()
			if err != nil {
				return err
			}

			res, err := o.Hydrate(cmd.Context(), hydrate.Request{
				Source: args[0],
				Mode:   mode,
				Branch: branch,
				Depth:  depth,
				Force:  force,
			})
			if err != nil {
				return err
			}

			m := res.Manifest
			fmt.Printf("hydrated %s\n", res.Identity)
			fmt.Printf("  mode:       %s\n", m.Mode)
			if m.AnalyzedCommit != "" {
				fmt.Printf("  commit:     %s\n", m.AnalyzedCommit)
			}
			if langs := res.Metadata.DetectedType.Languages; len(langs) > 0 {
				fmt.Printf("  languages:  %s\n", strings.Join(langs, ", "))
			}
			fmt.Printf("  analyzers:  %d (%d failed)\n", len(m.Analyses), countFailed(m))
			fmt.Printf("  risk:       %s\n", m.Summary.RiskLevel)
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "branch to clone")
	cmd.Flags().IntVar(&depth, "depth", 0, "clone depth (0 = full history)")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing project")
	cmd.Flags().StringVar(&profile, "profile", "", "analysis profile to run")
	cmd.Flags().BoolVar(&quick, "quick", false, "use the quick profile")
	cmd.Flags().BoolVar(&standard, "standard", false, "use the standard profile")
	cmd.Flags().BoolVar(&advanced, "advanced", false, "use the advanced profile")
	cmd.Flags().BoolVar(&deep, "deep", false, "use the deep profile")
	cmd.Flags().BoolVar(&security, "security", false, "use the security profile")

	return cmd
}
