// Package api defines the bulletinkeeper RPC surface: request and response
// messages, the gRPC service descriptor and a thin client. Messages travel
// as protobuf google.protobuf.Struct values, built from each message's
// JSON field names, under the "pbstruct" content subtype.
package api

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// CodecName is the gRPC content subtype used by every bulletinkeeper call.
const CodecName = "pbstruct"

// structCodec maps a message onto a structpb.Struct via its json tags.
// Numbers travel as doubles, so integer fields stay exact up to 2^53.
type structCodec struct{}

func (structCodec) Marshal(v any) ([]byte, error) {
	s, err := toStruct(v)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func (structCodec) Unmarshal(data []byte, v any) error {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (structCodec) Name() string { return CodecName }

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("message %T is not an object: %w", v, err)
	}
	return structpb.NewStruct(m)
}

func init() {
	encoding.RegisterCodec(structCodec{})
}
