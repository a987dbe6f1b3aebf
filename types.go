package efunc

import (
	"context"
	"fmt"
)

// FunctionID identifies one deployed function, stable for the lifetime of a
// deployment.
type FunctionID string

// InvocationResult is the outcome of one invocation. A failed remote function
// is a valid result, not a client error; transport-level problems surface as
// errors from the client methods instead.
type InvocationResult struct {
	OK         bool
	Payload    []byte
	ErrMessage string
}

// Err returns the remote failure as an error, nil for a successful result.
func (r InvocationResult) Err() error {
	if r.OK {
		return nil
	}
	return &RemoteError{Message: r.ErrMessage}
}

// RemoteError is a failure raised by the function itself on the platform.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("efunc: remote function failed: %s", e.Message)
}

// Invoker abstracts the unary RPC seam between the client and its transport.
// Split out so the call logic can run against a mock.
type Invoker interface {
	Invoke(ctx context.Context, method string, req, reply any) error
}
