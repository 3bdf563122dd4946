// Package rpc serves the Reelin API as Connect unary procedures over plain Go structs.
package rpc

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// ServiceName is the fully-qualified service every procedure lives under.
const ServiceName = "reelin.v1.ReelinService"

// Procedure returns the HTTP path of a service method.
func Procedure(method string) string {
	return "/" + ServiceName + "/" + method
}

// JSONCodec replaces Connect's protobuf JSON codec so messages can be ordinary structs.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

// Name implements connect.Codec.
func (JSONCodec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (JSONCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return b, nil
}

// Unmarshal implements connect.Codec. An empty body leaves v at its zero value.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %T: %w", v, err)
	}
	return nil
}

// ClientOptions are the options a Connect client needs to talk to the service.
func ClientOptions() []connect.ClientOption {
	return []connect.ClientOption{connect.WithCodec(JSONCodec{})}
}
