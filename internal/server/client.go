package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is a thin gRPC client for the dtss.Router service. The host
// uses it to verify its own listener at startup; tests use it to drive
// the full wire path.
type Client struct {
	conn *grpc.ClientConn
}

// DialOption forwards extra grpc dial options.
type DialOption = grpc.DialOption

// Dial connects to a dtss.Router endpoint.
func Dial(target string, opts ...DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Read issues a read request.
func (c *Client) Read(ctx context.Context, req *ReadRequest) (*ReadResponse, error) {
	out := new(ReadResponse)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/Read", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Find issues a find request.
func (c *Client) Find(ctx context.Context, req *FindRequest) (*FindResponse, error) {
	out := new(FindResponse)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/Find", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
