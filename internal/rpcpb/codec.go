// Package rpcpb defines the wire messages for the gRPC aggregation
// surface. There is no protoc toolchain in this build: messages are
// hand-maintained Go structs with their own fixed-width Marshal/Unmarshal
// methods, registered with google.golang.org/grpc through a custom
// encoding.Codec content-subtype instead of generated protobuf code.
package rpcpb

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// ContentSubtype is registered as the gRPC codec name ("tapwire"); servers
// and clients must both use grpc.CallContentSubtype(ContentSubtype) (or the
// equivalent dial/server option) to select this codec over the default
// protobuf one.
const ContentSubtype = "tapwire"

// wireMessage is implemented by every request/response type in this
// package.
type wireMessage interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

// Codec adapts wireMessage's hand-rolled framing to grpc's encoding.Codec
// interface.
type Codec struct{}

func (Codec) Name() string { return ContentSubtype }

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("rpcpb: %T does not implement wireMessage", v)
	}
	return m.Marshal()
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("rpcpb: %T does not implement wireMessage", v)
	}
	return m.Unmarshal(data)
}

func init() {
	encoding.RegisterCodec(Codec{})
}
