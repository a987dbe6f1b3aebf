package errs

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrNotFound -> the app or function does not exist on the platform
	ErrNotFound = errors.New("efunc: app or function not found")
	// ErrAuth -> the token id/secret pair was rejected
	ErrAuth = errors.New("efunc: invalid credentials")
	// ErrTransport -> the control plane could not be reached
	ErrTransport = errors.New("efunc: transport failure")
	// ErrTimeout -> no output arrived within the caller's timeout
	ErrTimeout = errors.New("efunc: timed out waiting for output")
	// ErrHandleConsumed -> the invocation output was already retrieved once
	ErrHandleConsumed = errors.New("efunc: invocation handle already consumed")
	// ErrSequence -> map, put input and get output ran out of order
	ErrSequence = errors.New("efunc: invocation operations out of order")
	ErrClosed   = errors.New("efunc: client is closed")
)

var (
	ProtoSerializeTypError   = errors.New("serialize: serialization must be proto.Message type")
	ProtoDeserializeTypError = errors.New("serialize: deserialization must be proto.Message type")
)

func NotFound(app, function string) error {
	return fmt.Errorf("%w: %s/%s", ErrNotFound, app, function)
}

func TransportFailure(err error) error {
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

// FromRPC maps a control-plane status code back to the local error kind.
// Unknown codes count as transport failures, so the caller always sees one
// of the documented kinds.
func FromRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return TransportFailure(err)
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrAuth, st.Message())
	case codes.DeadlineExceeded:
		return ErrTimeout
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", ErrHandleConsumed, st.Message())
	default:
		return TransportFailure(err)
	}
}
