package errcode

import (
	"context"
	"errors"

	"typeccode-go/pd"
)

// Code is a stable, link-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable). The protocol codes mirror pd.Error
// so replies carry the same vocabulary end to end.
const (
	OK                Code = "ok"
	Busy              Code = "busy"
	Unsupported       Code = "unsupported"
	InvalidParams     Code = "invalid_params"
	InvalidPort       Code = "invalid_port"
	InvalidController Code = "invalid_controller"
	InvalidPayload    Code = "invalid_payload"
	Timeout           Code = "timeout"
	InUse             Code = "in_use"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error. PD protocol
// codes pass through under their own name.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	var pe pd.Error
	if errors.As(err, &pe) {
		return Code(pe)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return Error
}
