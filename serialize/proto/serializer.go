package proto

import (
	"google.golang.org/protobuf/proto"

	"efunc/internal/errs"
)

// Serializer -> Protobuf payload encoding. Only for user payloads whose
// types are proto messages; it is not registered as a transport codec because
// the control-plane structs are not protos.
type Serializer struct{}

func (s Serializer) Code() byte {
	return 2
}

func (s Serializer) Name() string {
	return "proto-payload"
}

func (s Serializer) Encode(val any) ([]byte, error) {
	msg, ok := val.(proto.Message)
	if !ok {
		return nil, errs.ProtoSerializeTypError
	}
	return proto.Marshal(msg)
}

func (s Serializer) Decode(data []byte, val any) error {
	msg, ok := val.(proto.Message)
	if !ok {
		return errs.ProtoDeserializeTypError
	}
	return proto.Unmarshal(data, msg)
}
