package grpcnet

import (
	"encoding/json"
	"fmt"
)

// jsonCodecName is registered with google.golang.org/grpc/encoding so every
// call on this package's ServiceDesc negotiates the "json" content-subtype
// instead of protobuf wire format. The RPC surface here was never
// generated from .proto files, so there is no protobuf message type to
// encode against; JSON carries the same domain structs the simulator
// transport already passes in-process.
const jsonCodecName = "json"

// jsonCodec implements google.golang.org/grpc/encoding.Codec.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("grpcnet: marshal: %w", err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("grpcnet: unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return jsonCodecName }
