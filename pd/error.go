package pd

// Error is a PD protocol error code. Codes are stable strings so they
// can ride bus payloads and console replies unchanged.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrInvalidController Error = "invalid_controller"
	ErrInvalidPort       Error = "invalid_port"
	ErrInvalidMode       Error = "invalid_mode"
	ErrInvalidParams     Error = "invalid_params"
	ErrInvalidResponse   Error = "invalid_response"
	ErrUnsupported       Error = "unsupported"
	ErrBusy              Error = "busy"
	ErrTimeout           Error = "timeout"
	ErrInUse             Error = "in_use"
	ErrFailed            Error = "failed"
)

// BusError wraps a transport fault (I2C, register access) from a
// controller driver. Op names the failed operation.
type BusError struct {
	Op  string
	Err error
}

func (e *BusError) Error() string {
	if e.Err == nil {
		return "bus: " + e.Op
	}
	return "bus: " + e.Op + ": " + e.Err.Error()
}

func (e *BusError) Unwrap() error { return e.Err }

// Bus wraps err as a BusError. Returns nil if err is nil.
func Bus(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BusError{Op: op, Err: err}
}

// Split reduces any driver error to its protocol code. Bus faults
// collapse to ErrFailed, protocol codes pass through unchanged.
func Split(err error) Error {
	switch e := err.(type) {
	case nil:
		return ""
	case Error:
		return e
	default:
		return ErrFailed
	}
}

// AsPd normalizes err for a command response. nil stays nil,
// everything else becomes its protocol code.
func AsPd(err error) error {
	if err == nil {
		return nil
	}
	return Split(err)
}
