package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phantomsec/gibson/internal/layout"
)

func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean <target>",
		Short: "Delete a project's directory tree and index entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			o, err := a.orchestrator()
			if err != nil {
				return err
			}

			id := layout.DeriveIdentity(args[0])
			if err := o.Remove(id); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", id)
			return nil
		},
	}
}

func useCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <target>",
		Short: "Set the active project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			o, err := a.orchestrator()
			if err != nil {
				return err
			}

			id := layout.DeriveIdentity(args[0])
			entry, err := o.Index().Get(id)
			if err != nil {
				return err
			}
			if entry == nil {
				return fmt.Errorf("no project %s; hydrate it first", id)
			}
			if err := o.Index().SetActive(id); err != nil {
				return err
			}
			fmt.Printf("active project is now %s\n", id)
			return nil
		},
	}
}
