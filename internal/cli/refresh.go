package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phantomsec/gibson/internal/freshness"
)

func refreshCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh [target]",
		Short: "Bring a project's clone up to date with its remote",
		Long: `Fetches the remote and fast-forwards the local clone when it is
strictly behind. A diverged clone is left untouched unless --force is
given, in which case local state is discarded in favor of the remote.
Without a target the active project is used.`,
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

			checker := freshness.NewChecker(a.logger)
			state, err := checker.Reconcile(cmd.Context(), a.layout.RepoDir(id), force)
			if err != nil {
				return err
			}

			switch state.Kind {
			case freshness.UpToDate:
				fmt.Printf("%s is up to date at %s\n", id, shortCommit(state.LocalHead))
			case freshness.NoRemote:
				fmt.Printf("%s has no remote; nothing to refresh\n", id)
			default:
				fmt.Printf("%s: %s", id, state.Kind)
				if state.Reason != "" {
					fmt.Printf(" (%s)", state.Reason)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "discard local state when diverged")
	return cmd
}
