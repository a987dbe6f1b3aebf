package cbor

import (
	"github.com/fxamacker/cbor/v2"

	"efunc/serialize"
)

func init() {
	serialize.Register(Serializer{})
}

// Serializer -> CBOR encoding. Compact binary, self-describing, and the
// format most platform runtimes use for function arguments.
type Serializer struct{}

func (s Serializer) Code() byte {
	return 3
}

func (s Serializer) Name() string {
	return "cbor"
}

func (s Serializer) Encode(val any) ([]byte, error) {
	return cbor.Marshal(val)
}

func (s Serializer) Decode(data []byte, val any) error {
	return cbor.Unmarshal(data, val)
}
