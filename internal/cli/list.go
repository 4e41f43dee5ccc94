package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/phantomsec/gibson/internal/manifest"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List managed projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			o, err := a.orchestrator()
			if err != nil {
				return err
			}

			ids, err := o.Index().List()
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Println("no projects")
				return nil
			}
			active, err := o.Index().Active()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROJECT\tSTATUS\tRISK\tLAST ANALYZED")
			for _, id := range ids {
				status, risk, analyzed := "-", "-", "-"
				if entry, err := o.Index().Get(id); err == nil && entry != nil {
					status = string(entry.Status)
					if entry.LastAnalyzed != nil {
						analyzed = entry.LastAnalyzed.Format("2006-01-02 15:04")
					}
				}
				if m, err := o.Manifests().Load(id); err == nil {
					risk = string(m.Summary.RiskLevel)
				}
				marker := ""
				if id.String() == active {
					marker = " *"
				}
				fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", id, marker, status, risk, analyzed)
			}
			return w.Flush()
		},
	}
}

func countFailed(m *manifest.Manifest) int {
	n := 0
	for _, rec := range m.Analyses {
		if rec.Status == manifest.StatusFailed {
			n++
		}
	}
	return n
}
