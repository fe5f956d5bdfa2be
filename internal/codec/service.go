package codec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// EmbedMethod is the full method name of the embedding RPC.
const EmbedMethod = "/edrisk.v1.Embedder/Embed"

// #region client-stub
// EmbedServiceClient is the client API for the edrisk.v1.Embedder service.
// Requests and responses are google.protobuf.Struct messages:
// {text, model} in, {embedding: [number...]} out.
type EmbedServiceClient interface {
	Embed(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type embedServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEmbedServiceClient binds the service stub to a connection.
func NewEmbedServiceClient(cc grpc.ClientConnInterface) EmbedServiceClient {
	return &embedServiceClient{cc: cc}
}

func (c *embedServiceClient) Embed(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, EmbedMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion client-stub

// #region server-stub
// EmbedServer is the server API for the edrisk.v1.Embedder service.
type EmbedServer interface {
	Embed(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the edrisk.v1.Embedder service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "edrisk.v1.Embedder",
	HandlerType: (*EmbedServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Embed", Handler: embedHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "edrisk/v1/embedder.proto",
}

// RegisterEmbedServer registers srv on s.
func RegisterEmbedServer(s grpc.ServiceRegistrar, srv EmbedServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func embedHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EmbedServer).Embed(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: EmbedMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EmbedServer).Embed(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion server-stub

// #region adapter
// EmbedFunc is any function that embeds text, such as an embed.Embedder's method.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// FuncServer serves the Embedder RPC from an EmbedFunc.
type FuncServer struct {
	Fn EmbedFunc
}

// Embed implements EmbedServer.
func (s FuncServer) Embed(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	text := in.GetFields()["text"].GetStringValue()
	if text == "" {
		return nil, status.Error(codes.InvalidArgument, "text is required")
	}
	vec, err := s.Fn(ctx, text)
	if err != nil {
		return nil, status.Error(codes.Unavailable, fmt.Sprintf("embed: %v", err))
	}
	values := make([]any, len(vec))
	for i, v := range vec {
		values[i] = float64(v)
	}
	out, err := structpb.NewStruct(map[string]any{"embedding": values})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// #endregion adapter
