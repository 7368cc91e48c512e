package opup

import "fmt"

// Kind is the closed set of error kinds the OPUP stack can surface. Every
// failure in the core is one of these; callers distinguish them with
// errors.Is against the Err* sentinels declared at the end of this file.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransportUnavailable
	KindTimeout
	KindBadFraming
	KindBadCrc
	KindDeviceError
	KindProtocolViolation
	KindOperationFailed
)

func (k Kind) String() string {
	switch k {
	case KindTransportUnavailable:
		return "TransportUnavailable"
	case KindTimeout:
		return "Timeout"
	case KindBadFraming:
		return "BadFraming"
	case KindBadCrc:
		return "BadCrc"
	case KindDeviceError:
		return "DeviceError"
	case KindProtocolViolation:
		return "ProtocolViolation"
	case KindOperationFailed:
		return "OperationFailed"
	default:
		return "Unknown"
	}
}

// Error is the error type every OPUP-stack failure wraps. It carries a
// Kind for programmatic dispatch and, for KindDeviceError, the device's
// opaque diagnostic payload.
type Error struct {
	Kind    Kind
	Msg     string
	Payload []byte
	Err     error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, opup.ErrTimeout) (and friends) match any *Error
// of the same Kind, regardless of message or wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

func newDeviceError(payload []byte) *Error {
	return &Error{Kind: KindDeviceError, Msg: "device reported an error", Payload: payload}
}

// Sentinels for errors.Is comparisons; only Kind is consulted by Is, so
// these carry no message.
var (
	ErrTransportUnavailable = &Error{Kind: KindTransportUnavailable}
	ErrTimeout              = &Error{Kind: KindTimeout}
	ErrBadFraming           = &Error{Kind: KindBadFraming}
	ErrBadCrc               = &Error{Kind: KindBadCrc}
	ErrDeviceError          = &Error{Kind: KindDeviceError}
	ErrProtocolViolation    = &Error{Kind: KindProtocolViolation}
	ErrOperationFailed      = &Error{Kind: KindOperationFailed}
)
