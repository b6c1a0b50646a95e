package errcode

// Code is a stable, surface-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK                 Code = "ok"
	NotFound           Code = "not_found"           // unresolved pin configuration or event name
	InvalidArgument    Code = "invalid_argument"    // malformed token or payload
	HardwareFault      Code = "hardware_fault"      // rail or GPIO operation failed
	ChannelUnavailable Code = "channel_unavailable" // event send could not be delivered
	NotSupported       Code = "not_supported"       // unknown command code
	Busy               Code = "busy"

	Error Code = "error" // generic fallback
)

// E wraps a Code with context and an optional cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
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
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		if c := Of(u.Unwrap()); c != Error {
			return c
		}
	}
	return Error
}

// Wrap builds an E around err; a nil err yields nil.
func Wrap(c Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: c, Op: op, Err: err}
}
