package ucsi

import (
	"errors"
	"testing"
)

func TestCommandFromIdleExecutesThenAwaitsAck(t *testing.T) {
	var m StateMachine

	out, err := m.Consume(CommandInput(Command{Code: CodeGetCapability}))
	if err != nil {
		t.Fatalf("command in idle: %v", err)
	}
	if out.Kind != OutExecuteCommand || out.Cmd.Code != CodeGetCapability {
		t.Fatalf("unexpected output: %+v", out)
	}
	if m.State() != PpmExecuting {
		t.Fatalf("state = %v, want executing", m.State())
	}

	out, err = m.Consume(CompleteInput())
	if err != nil {
		t.Fatalf("command complete: %v", err)
	}
	if out.Kind != OutNotifyCommandComplete {
		t.Fatalf("unexpected output: %+v", out)
	}
	if m.State() != PpmAwaitingAck {
		t.Fatalf("state = %v, want awaiting_ack", m.State())
	}

	out, err = m.Consume(CommandInput(Command{Code: CodeAckCcCi, Ack: Ack{CommandComplete: true}}))
	if err != nil {
		t.Fatalf("ack: %v", err)
	}
	if out.Kind != OutAckComplete || !out.Ack.CommandComplete {
		t.Fatalf("unexpected output: %+v", out)
	}
	if m.State() != PpmIdle {
		t.Fatalf("state = %v, want idle", m.State())
	}
}

func TestAckInIdleCompletesWithoutExecuting(t *testing.T) {
	var m StateMachine

	out, err := m.Consume(CommandInput(Command{Code: CodeAckCcCi, Ack: Ack{ConnectorChange: true}}))
	if err != nil {
		t.Fatalf("ack in idle: %v", err)
	}
	if out.Kind != OutAckComplete || !out.Ack.ConnectorChange {
		t.Fatalf("unexpected output: %+v", out)
	}
	if m.State() != PpmIdle {
		t.Fatalf("state = %v, want idle", m.State())
	}
}

func TestPpmResetForcesIdleFromEveryState(t *testing.T) {
	var m StateMachine

	// Drive into executing.
	if _, err := m.Consume(CommandInput(Command{Code: CodeGetCapability})); err != nil {
		t.Fatal(err)
	}
	out, err := m.Consume(CommandInput(Command{Code: CodePpmReset}))
	if err != nil {
		t.Fatalf("reset while executing: %v", err)
	}
	if out.Kind != OutResetComplete || m.State() != PpmIdle {
		t.Fatalf("out = %+v state = %v", out, m.State())
	}

	// Drive into awaiting ack.
	if _, err := m.Consume(CommandInput(Command{Code: CodeGetCapability})); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Consume(CompleteInput()); err != nil {
		t.Fatal(err)
	}
	out, err = m.Consume(CommandInput(Command{Code: CodePpmReset}))
	if err != nil {
		t.Fatalf("reset while awaiting ack: %v", err)
	}
	if out.Kind != OutResetComplete || m.State() != PpmIdle {
		t.Fatalf("out = %+v state = %v", out, m.State())
	}
}

func TestCommandWhileExecutingReportsBusy(t *testing.T) {
	var m StateMachine

	if _, err := m.Consume(CommandInput(Command{Code: CodeGetCapability})); err != nil {
		t.Fatal(err)
	}
	out, err := m.Consume(CommandInput(Command{Code: CodeGetConnectorStatus}))
	if err != nil {
		t.Fatalf("second command: %v", err)
	}
	if out.Kind != OutNotifyBusy {
		t.Fatalf("unexpected output: %+v", out)
	}
	if m.State() != PpmExecuting {
		t.Fatalf("busy changed state to %v", m.State())
	}
}

func TestInvalidTransitionsLeaveStateUnchanged(t *testing.T) {
	var m StateMachine

	// Complete with nothing executing.
	_, err := m.Consume(CompleteInput())
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("complete in idle: err = %v", err)
	}
	if m.State() != PpmIdle {
		t.Fatalf("state changed on error: %v", m.State())
	}

	// Non-ack command while awaiting ack.
	if _, err := m.Consume(CommandInput(Command{Code: CodeGetCapability})); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Consume(CompleteInput()); err != nil {
		t.Fatal(err)
	}
	_, err = m.Consume(CommandInput(Command{Code: CodeGetConnectorStatus}))
	if !errors.As(err, &ite) {
		t.Fatalf("command while awaiting ack: err = %v", err)
	}
	if m.State() != PpmAwaitingAck {
		t.Fatalf("state changed on error: %v", m.State())
	}

	// Empty input.
	if _, err := m.Consume(Input{}); err == nil {
		t.Fatal("empty input accepted")
	}
}
