package workitem

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State IDs for statekit. These must remain untyped string constants and are kept
// in sync with the Stage values in stage.go.
const (
	stateNew       = "new"
	stateConfirmed = "confirmed"
	stateWork      = "work"
	stateTest      = "test"
	stateAccept    = "accept"
	stateClosed    = "closed"
)

// init validates that machine state IDs match Stage values.
func init() {
	stateMap := map[string]Stage{
		stateNew:       StageNew,
		stateConfirmed: StageConfirmed,
		stateWork:      StageWork,
		stateTest:      StageTest,
		stateAccept:    StageAccept,
		stateClosed:    StageClosed,
	}
	for id, stage := range stateMap {
		if id != string(stage) {
			panic(fmt.Sprintf("machine state %q does not match Stage %q - constants are out of sync", id, stage))
		}
	}
}

// MachineContext carries the item reference and the authorization guard.
type MachineContext struct {
	ItemID string
	Guard  func(itemID string, action string) bool
}

// Machine drives one item's stage through statekit.
type Machine struct {
	kind        Kind
	interpreter *statekit.Interpreter[MachineContext]
}

// NewMachine builds the lifecycle machine for a kind, positioned at stage.
// A nil guard allows every defined transition.
func NewMachine(kind Kind, stage Stage, itemID string, guard func(string, string) bool) (*Machine, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid item kind: %s", kind)
	}
	if !stage.IsValid() {
		return nil, fmt.Errorf("invalid stage: %s", stage)
	}
	if guard == nil {
		guard = func(string, string) bool { return true }
	}

	builder := statekit.NewMachine[MachineContext](string(kind)+"-lifecycle").
		WithInitial(statekit.StateID(stage)).
		WithContext(MachineContext{
			ItemID: itemID,
			Guard:  guard,
		}).
		WithGuard("roleGuard", func(ctx MachineContext, e statekit.Event) bool {
			return ctx.Guard(ctx.ItemID, string(e.Type))
		})

	if kind == KindTask {
		builder.State(stateNew).
			On(statekit.EventType(ActionConfirm)).Target(stateConfirmed).Guard("roleGuard").
			Done()

		builder.State(stateConfirmed).
			On(statekit.EventType(ActionStart)).Target(stateWork).Guard("roleGuard").
			Done()
	}

	builder.State(stateWork).
		On(statekit.EventType(ActionDone)).Target(stateTest).Guard("roleGuard").
		Done()

	builder.State(stateTest).
		On(statekit.EventType(ActionAccept)).Target(stateAccept).Guard("roleGuard").
		Done()

	builder.State(stateAccept).
		On(statekit.EventType(ActionClose)).Target(stateClosed).Guard("roleGuard").
		Done()

	// Closed is terminal.
	builder.State(stateClosed).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s lifecycle machine: %w", kind, err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &Machine{kind: kind, interpreter: interpreter}, nil
}

// Fire sends the action to the machine. It fails if the stage did not change,
// which covers both undefined actions and a rejecting guard.
func (m *Machine) Fire(action Action) error {
	before := m.Current()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(action)})
	after := m.Current()

	if before != after {
		return nil
	}
	return fmt.Errorf("the action '%s' is not allowed while the %s is in the '%s' stage", action, m.kind, before)
}

// Current returns the machine's stage.
func (m *Machine) Current() Stage {
	return Stage(m.interpreter.State().Value)
}
