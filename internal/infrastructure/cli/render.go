package cli

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/cardflow/pkg/domain/team"
	"github.com/felixgeelhaar/cardflow/pkg/domain/workitem"
	"github.com/spf13/cobra"
)

var renderOpts struct {
	kind        string
	seq         int
	description string
	developer   string
	tester      string
	creator     string
	stage       string
	at          string
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print a card as it would appear at a given stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := renderItem()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), w.DisplayText())
		return nil
	},
}

// renderItem creates an item and walks it forward to the requested stage,
// one stamp per step, a minute apart.
func renderItem() (*workitem.WorkItem, error) {
	kind, err := workitem.ParseKind(renderOpts.kind)
	if err != nil {
		return nil, err
	}
	target := kind.InitialStage()
	if renderOpts.stage != "" {
		if target, err = workitem.ParseStage(renderOpts.stage); err != nil {
			return nil, err
		}
	}
	at := time.Now()
	if renderOpts.at != "" {
		if at, err = time.ParseInLocation("2006-01-02 15:04", renderOpts.at, time.Local); err != nil {
			return nil, fmt.Errorf("invalid --at (want YYYY-MM-DD HH:MM): %w", err)
		}
	}

	assignment := team.Assignment{
		Developer: team.NormalizeHandle(renderOpts.developer),
		Tester:    team.NormalizeHandle(renderOpts.tester),
	}
	creator := team.NormalizeHandle(renderOpts.creator)
	w := workitem.New(kind, renderOpts.seq, 0, renderOpts.description, assignment, at)

	for w.Stage != target {
		rule, ok := nextRule(kind, w.Stage)
		if !ok {
			return nil, fmt.Errorf("%s cannot reach stage %s", kind, target)
		}
		at = at.Add(time.Minute)
		t, err := w.Plan(rule.Action, w.Stage, team.Roles{Creator: true}, creator, at)
		if err != nil {
			return nil, err
		}
		if err := w.Apply(t); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func nextRule(kind workitem.Kind, from workitem.Stage) (workitem.Rule, bool) {
	for _, r := range workitem.Rules(kind) {
		if r.From == from && r.Moves() {
			return r, true
		}
	}
	return workitem.Rule{}, false
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderOpts.kind, "kind", "task", "task, glitch or fix")
	f.IntVar(&renderOpts.seq, "seq", 1, "sequence number")
	f.StringVar(&renderOpts.description, "description", "Описание задачи", "card description")
	f.StringVar(&renderOpts.developer, "dev", "@dev", "developer handle")
	f.StringVar(&renderOpts.tester, "tester", "@tester", "tester handle")
	f.StringVar(&renderOpts.creator, "creator", "@creator", "project creator handle")
	f.StringVar(&renderOpts.stage, "stage", "", "stage to walk the card to (default: the kind's first stage)")
	f.StringVar(&renderOpts.at, "at", "", "creation time as YYYY-MM-DD HH:MM (default: now)")
	RootCmd.AddCommand(renderCmd)
}
