package serialize

import (
	"google.golang.org/grpc/encoding"
)

// Serializer -> payload encoding protocol abstract
type Serializer interface {
	// Code travels in the request's data-format field
	Code() byte
	// Name doubles as the gRPC content subtype when the serializer is
	// registered as a transport codec
	Name() string
	Encode(val any) ([]byte, error)
	Decode(data []byte, val any) error
}

// Register exposes a serializer as a gRPC codec so the control-plane bodies
// themselves travel in that encoding (selected per call via the content
// subtype).
func Register(s Serializer) {
	encoding.RegisterCodec(codecAdapter{s: s})
}

type codecAdapter struct {
	s Serializer
}

func (c codecAdapter) Marshal(v any) ([]byte, error) {
	return c.s.Encode(v)
}

func (c codecAdapter) Unmarshal(data []byte, v any) error {
	return c.s.Decode(data, v)
}

func (c codecAdapter) Name() string {
	return c.s.Name()
}
