package peer

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// jsonCodec replaces the default protobuf codec with plain encoding/json.
// There is no .proto file in this repo: the wire messages below (wireEvent,
// resyncRequest, resyncEvent) are plain Go structs, and grpc-go lets the
// transport be swapped out independently of the RPC definitions by
// registering a named encoding.Codec and selecting it per-call with
// grpc.CallContentSubtype/grpc.ForceServerCodec. This keeps protoc and the
// generated-code toolchain entirely out of the build.
const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// marshalError wraps a codec failure with enough context to tell which
// message kind failed to encode, since the generic error from encoding/json
// doesn't name the RPC.
func marshalError(rpc string, err error) error {
	return fmt.Errorf("peer: %s: marshal: %w", rpc, err)
}
