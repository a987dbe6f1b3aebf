package efunc

import (
	"context"
	"fmt"
	"time"
)

// Class references a deployed class of functions. Methods are addressed as
// qualified tags, "ClassName.method", and invoked through the same
// map/put/get chain as plain functions.
type Class struct {
	client *Client
	app    string
	name   string
}

func (c *Client) Class(app, name string) *Class {
	return &Class{
		client: c,
		app:    app,
		name:   name,
	}
}

// Method resolves one method of the class to its function id.
func (cl *Class) Method(ctx context.Context, method string) (FunctionID, error) {
	return cl.client.Map(ctx, cl.app, cl.tag(method))
}

// Call invokes one method with the given payload.
func (cl *Class) Call(ctx context.Context, method string, payload []byte) (InvocationResult, error) {
	return cl.client.Call(ctx, cl.app, cl.tag(method), payload)
}

// Submit starts an invocation of one method without waiting for its output.
func (cl *Class) Submit(ctx context.Context, method string, payload []byte) (*InvocationHandle, error) {
	fid, err := cl.Method(ctx, method)
	if err != nil {
		return nil, err
	}
	return cl.client.PutInput(ctx, fid, payload)
}

// Outcome retrieves the output of a submitted method invocation.
func (cl *Class) Outcome(ctx context.Context, h *InvocationHandle, timeout time.Duration) (InvocationResult, error) {
	return cl.client.GetOutput(ctx, h, timeout)
}

func (cl *Class) tag(method string) string {
	return fmt.Sprintf("%s.%s", cl.name, method)
}
