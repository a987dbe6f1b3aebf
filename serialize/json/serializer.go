package json

import (
	"encoding/json"

	"efunc/serialize"
)

func init() {
	serialize.Register(Serializer{})
}

// Serializer -> JSON encoding, the default for control-plane bodies
type Serializer struct{}

func (s Serializer) Code() byte {
	return 1
}

func (s Serializer) Name() string {
	return "json"
}

func (s Serializer) Encode(val any) ([]byte, error) {
	return json.Marshal(val)
}

func (s Serializer) Decode(data []byte, val any) error {
	return json.Unmarshal(data, val)
}
