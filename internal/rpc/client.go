package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/napolitain/rts-economy/internal/converter"
)

// Client calls the economy service over an established connection
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Decide sends one tick of world state and returns the manager's decision.
// Leave req.Session empty to start a new session.
func (c *Client) Decide(ctx context.Context, req converter.Request, opts ...grpc.CallOption) (converter.Response, error) {
	in, err := converter.RequestToStruct(req)
	if err != nil {
		return converter.Response{}, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, decideMethod, in, out, opts...); err != nil {
		return converter.Response{}, err
	}
	resp, err := converter.StructToResponse(out)
	if err != nil {
		return converter.Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// EndSession releases the server state of a session
func (c *Client) EndSession(ctx context.Context, session string, opts ...grpc.CallOption) error {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"session": structpb.NewStringValue(session),
	}}
	return c.cc.Invoke(ctx, endSessionMethod, in, new(structpb.Struct), opts...)
}
