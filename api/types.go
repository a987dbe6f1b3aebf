// Package api defines the control-plane contract of the functions platform.
// The schema is carried by plain structs encoded through a registered codec
// (see serialize), not by generated stubs, so the wire format follows whatever
// content subtype the client selected.
package api

// ServiceName is the full control-plane service name.
const ServiceName = "efunc.v1.ControlPlane"

const (
	MethodFunctionMap        = "/" + ServiceName + "/FunctionMap"
	MethodFunctionPutInputs  = "/" + ServiceName + "/FunctionPutInputs"
	MethodFunctionGetOutputs = "/" + ServiceName + "/FunctionGetOutputs"
)

// Payload data formats. The platform never interprets the payload, the code
// only travels alongside it so the two ends of a function agree.
const (
	FormatRaw   uint8 = 0
	FormatJSON  uint8 = 1
	FormatProto uint8 = 2
	FormatCBOR  uint8 = 3
)

type FunctionMapRequest struct {
	AppName      string `json:"app_name"`
	FunctionName string `json:"function_name"`
}

type FunctionMapResponse struct {
	FunctionID string `json:"function_id"`
}

type FunctionPutInputsRequest struct {
	FunctionID string `json:"function_id"`
	Payload    []byte `json:"payload"`
	DataFormat uint8  `json:"data_format"`
}

type FunctionPutInputsResponse struct {
	InvocationID string `json:"invocation_id"`
}

type FunctionGetOutputsRequest struct {
	InvocationID string `json:"invocation_id"`
	// WaitMillis is the server-side wait window for one attempt. The server
	// answers with a pending response once it elapses; the overall deadline
	// stays with the caller.
	WaitMillis int64 `json:"wait_millis"`
}

type FunctionGetOutputsResponse struct {
	// Pending reports that the invocation has not finished within the wait
	// window. Everything else in the response is meaningless when set.
	Pending bool   `json:"pending"`
	OK      bool   `json:"ok"`
	Payload []byte `json:"payload"`
	// ErrMessage carries the remote function's failure, not a client error.
	ErrMessage string `json:"err_message,omitempty"`
	DataFormat uint8  `json:"data_format"`
}
