package cli

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/felixgeelhaar/cardflow/pkg/domain/workitem"
	"github.com/spf13/cobra"
)

var stagesKind string

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "Show the lifecycle transition table",
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds := workitem.AllKinds()
		if stagesKind != "" {
			kind, err := workitem.ParseKind(stagesKind)
			if err != nil {
				return err
			}
			kinds = []workitem.Kind{kind}
		}

		out := cmd.OutOrStdout()
		for i, kind := range kinds {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%s (starts at %s)\n", kind.Label(), kind.InitialStage())
			fmt.Fprintln(out, stagesTable(kind).View())
		}
		return nil
	},
}

func stagesTable(kind workitem.Kind) table.Model {
	columns := []table.Column{
		{Title: "From", Width: 10},
		{Title: "Action", Width: 8},
		{Title: "To", Width: 16},
		{Title: "Stamp", Width: 5},
		{Title: "Allowed", Width: 44},
	}

	rows := []table.Row{}
	for _, r := range workitem.Rules(kind) {
		to, stamp := string(r.To), string(r.Stamp)
		if r.Spawns {
			to, stamp = "→ glitch | fix", "-"
		}
		rows = append(rows, table.Row{
			string(r.From),
			string(r.Action),
			to,
			stamp,
			r.Permit.Hint(),
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(len(rows)+1),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Bold(true)
	s.Selected = lipgloss.NewStyle() // Disable selection style for static view
	t.SetStyles(s)
	return t
}

func init() {
	stagesCmd.Flags().StringVar(&stagesKind, "kind", "", "only show one kind: task, glitch or fix")
	RootCmd.AddCommand(stagesCmd)
}
