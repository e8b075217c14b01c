package ucsi

// PpmState is the PPM command acknowledge state.
type PpmState uint8

const (
	// PpmIdle accepts new commands.
	PpmIdle PpmState = iota
	// PpmExecuting has a command in flight with the connector layer.
	PpmExecuting
	// PpmAwaitingAck finished a command and waits for ACK_CC_CI.
	PpmAwaitingAck
)

func (s PpmState) String() string {
	switch s {
	case PpmExecuting:
		return "executing"
	case PpmAwaitingAck:
		return "awaiting_ack"
	default:
		return "idle"
	}
}

// Input feeds the state machine. Exactly one of Cmd or Complete is
// set.
type Input struct {
	Cmd      *Command
	Complete bool
}

// CommandInput wraps a received command.
func CommandInput(cmd Command) Input { return Input{Cmd: &cmd} }

// CompleteInput reports that the current command's handler finished.
func CompleteInput() Input { return Input{Complete: true} }

func (in Input) name() string {
	switch {
	case in.Cmd != nil:
		return in.Cmd.Code.String()
	case in.Complete:
		return "COMMAND_COMPLETE"
	default:
		return "EMPTY"
	}
}

// OutputKind tells the caller what to do after a transition.
type OutputKind uint8

const (
	// OutExecuteCommand hands the command to its handler. Feed
	// CompleteInput once the handler returns.
	OutExecuteCommand OutputKind = iota
	// OutNotifyCommandComplete raises command complete towards the
	// OPM.
	OutNotifyCommandComplete
	// OutAckComplete finishes an ACK_CC_CI exchange.
	OutAckComplete
	// OutResetComplete finishes a PPM_RESET.
	OutResetComplete
	// OutNotifyBusy rejects a command received while executing.
	OutNotifyBusy
)

// Output is the action resulting from a consumed input.
type Output struct {
	Kind OutputKind
	// Cmd is the command to run for OutExecuteCommand.
	Cmd Command
	// Ack carries the acknowledged bits for OutAckComplete.
	Ack Ack
}

// InvalidTransitionError reports an input the current state cannot
// accept.
type InvalidTransitionError struct {
	State PpmState
	Input string
}

func (e *InvalidTransitionError) Error() string {
	return "ucsi: invalid transition: " + e.Input + " in state " + e.State.String()
}

// StateMachine tracks the PPM command acknowledge protocol. The zero
// value is an idle machine.
type StateMachine struct {
	state PpmState
}

func (m *StateMachine) State() PpmState { return m.state }

// Consume applies one input and returns the resulting action.
// PPM_RESET is accepted in every state and forces the machine idle.
// The state is left unchanged when an error is returned.
func (m *StateMachine) Consume(in Input) (Output, error) {
	switch {
	case in.Cmd != nil:
		return m.consumeCommand(*in.Cmd)
	case in.Complete:
		return m.consumeComplete()
	default:
		return Output{}, &InvalidTransitionError{State: m.state, Input: in.name()}
	}
}

func (m *StateMachine) consumeCommand(cmd Command) (Output, error) {
	if cmd.Code == CodePpmReset {
		m.state = PpmIdle
		return Output{Kind: OutResetComplete}, nil
	}

	switch m.state {
	case PpmIdle:
		if cmd.Code == CodeAckCcCi {
			return Output{Kind: OutAckComplete, Ack: cmd.Ack}, nil
		}
		m.state = PpmExecuting
		return Output{Kind: OutExecuteCommand, Cmd: cmd}, nil

	case PpmExecuting:
		// A second command while one is in flight. Tell the OPM to
		// back off, the in-flight command keeps running.
		return Output{Kind: OutNotifyBusy}, nil

	case PpmAwaitingAck:
		if cmd.Code == CodeAckCcCi {
			m.state = PpmIdle
			return Output{Kind: OutAckComplete, Ack: cmd.Ack}, nil
		}
		return Output{}, &InvalidTransitionError{State: m.state, Input: cmd.Code.String()}

	default:
		return Output{}, &InvalidTransitionError{State: m.state, Input: cmd.Code.String()}
	}
}

func (m *StateMachine) consumeComplete() (Output, error) {
	if m.state != PpmExecuting {
		return Output{}, &InvalidTransitionError{State: m.state, Input: "COMMAND_COMPLETE"}
	}
	m.state = PpmAwaitingAck
	return Output{Kind: OutNotifyCommandComplete}, nil
}
