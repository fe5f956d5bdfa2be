package codec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region client-struct
// Client wraps the gRPC connection to a remote embedding service.
type Client struct {
	conn   *grpc.ClientConn
	client EmbedServiceClient
	model  string
}

// #endregion client-struct

// #region constructor
// NewClient connects to the embedding service at addr.
func NewClient(addr, model string, opts ...grpc.DialOption) (*Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("grpc embedder: empty address")
	}
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		client: NewEmbedServiceClient(conn),
		model:  model,
	}, nil
}

// NewClientWithService creates a Client with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewClientWithService(svc EmbedServiceClient, model string) *Client {
	return &Client{client: svc, model: model}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// Model returns the model name sent with each request.
func (c *Client) Model() string { return c.model }

// #region embed
// Embed sends text to the service and decodes the returned vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	req, err := structpb.NewStruct(map[string]any{
		"text":  text,
		"model": c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	resp, err := c.client.Embed(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embed rpc: %w", err)
	}
	return decodeEmbedding(resp)
}

func decodeEmbedding(resp *structpb.Struct) ([]float32, error) {
	field, ok := resp.GetFields()["embedding"]
	if !ok {
		return nil, fmt.Errorf("embed response: missing embedding")
	}
	list := field.GetListValue()
	if list == nil || len(list.GetValues()) == 0 {
		return nil, fmt.Errorf("embed response: empty embedding")
	}
	vec := make([]float32, len(list.GetValues()))
	for i, v := range list.GetValues() {
		if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
			return nil, fmt.Errorf("embed response: element %d is not a number", i)
		}
		vec[i] = float32(v.GetNumberValue())
	}
	return vec, nil
}

// #endregion embed
