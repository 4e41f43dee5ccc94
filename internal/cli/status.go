package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/phantomsec/gibson/internal/freshness"
	"github.com/phantomsec/gibson/internal/project"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [target]",
		Short: "Show a project's metadata, manifest, and freshness",
		Long: `Prints the project's detected technologies, the outcome of each
analyzer from the last hydration, and whether the local clone is
behind its remote. Without a target the active project is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			o, err := a.orchestrator()
			if err != nil {
				return err
			}

			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			id, err := a.resolveTarget(o, target)
			if err != nil {
				return err
			}

			fmt.Printf("project: %s\n", id)

			meta, err := project.Load(a.layout, id)
			if err != nil {
				return fmt.Errorf("project %s has no metadata; was it hydrated?", id)
			}
			fmt.Printf("source:  %s (%s)\n", meta.Source, meta.SourceType)
			if meta.Branch != "" {
				fmt.Printf("branch:  %s @ %s\n", meta.Branch, shortCommit(meta.Commit))
			}
			if langs := meta.DetectedType.Languages; len(langs) > 0 {
				fmt.Printf("stack:   %s\n", strings.Join(langs, ", "))
			}

			if m, err := o.Manifests().Load(id); err == nil {
				fmt.Printf("\nlast analysis: mode=%s scan=%s\n", m.Mode, m.ScanID)
				fmt.Printf("risk: %s\n", m.Summary.RiskLevel)

				names := make([]string, 0, len(m.Analyses))
				for name := range m.Analyses {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					rec := m.Analyses[name]
					dur := ""
					if rec.DurationMS != nil {
						dur = fmt.Sprintf(" (%s)", time.Duration(*rec.DurationMS)*time.Millisecond)
					}
					fmt.Printf("  %-16s %s%s\n", name, rec.Status, dur)
				}

				level := staleness(a, m.StartedAt)
				fmt.Printf("analysis age: %s\n", level)
			} else {
				fmt.Println("\nno analysis manifest")
			}

			state := freshness.NewChecker(a.logger).Check(cmd.Context(), a.layout.RepoDir(id))
			fmt.Printf("\nfreshness: %s", state.Kind)
			if state.Reason != "" {
				fmt.Printf(" (%s)", state.Reason)
			}
			fmt.Println()
			return nil
		},
	}
}

func staleness(a *app, analyzedAt time.Time) freshness.Level {
	thresholds := freshness.Thresholds{
		FreshMaxHours:    a.cfg.Settings.FreshMaxHours,
		StaleMaxDays:     a.cfg.Settings.StaleMaxDays,
		VeryStaleMaxDays: a.cfg.Settings.VeryStaleMaxDays,
	}
	return thresholds.Check(analyzedAt)
}

func shortCommit(c string) string {
	if len(c) > 8 {
		return c[:8]
	}
	if c == "" {
		return "(none)"
	}
	return c
}
