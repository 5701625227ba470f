package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls cnis.v1.ExtractionService over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, method string, fields map[string]any, out any, opts ...grpc.CallOption) error {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return err
	}
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *Client) RegisterDocument(ctx context.Context, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.call(ctx, "RegisterDocument", fields, out, opts...)
}

func (c *Client) ProcessDocument(ctx context.Context, documentID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.call(ctx, "ProcessDocument", map[string]any{"document_id": documentID}, out, opts...)
}

func (c *Client) EnqueueDocument(ctx context.Context, documentID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.call(ctx, "EnqueueDocument", map[string]any{"document_id": documentID}, out, opts...)
}

func (c *Client) ProbeEnvironment(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.call(ctx, "ProbeEnvironment", map[string]any{}, out, opts...)
}

func (c *Client) ExportCase(ctx context.Context, caseID string, opts ...grpc.CallOption) ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.call(ctx, "ExportCase", map[string]any{"case_id": caseID}, out, opts...); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}
