package replaysvc

import (
	"context"

	"google.golang.org/grpc"
)

// #region service-desc
// ServiceName is the fully qualified gRPC service name.
const ServiceName = "replay.v1.ReplayService"

// ReplayServiceServer is the server API for the replay service.
type ReplayServiceServer interface {
	Add(context.Context, *AddRequest) (*AddResponse, error)
	Sample(context.Context, *SampleRequest) (*SampleResponse, error)
	Stats(context.Context, *StatsRequest) (*StatsResponse, error)
	Save(context.Context, *SaveRequest) (*SaveResponse, error)
	Clear(context.Context, *ClearRequest) (*ClearResponse, error)
}

// RegisterReplayServiceServer attaches srv to a gRPC server.
func RegisterReplayServiceServer(s grpc.ServiceRegistrar, srv ReplayServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReplayServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Add", ReplayServiceServer.Add),
		unary("Sample", ReplayServiceServer.Sample),
		unary("Stats", ReplayServiceServer.Stats),
		unary("Save", ReplayServiceServer.Save),
		unary("Clear", ReplayServiceServer.Clear),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "replay/v1",
}

func unary[Req, Resp any](method string, call func(ReplayServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ReplayServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ReplayServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
// #endregion service-desc

// #region service-client
// ReplayServiceClient is the client API for the replay service.
type ReplayServiceClient interface {
	Add(ctx context.Context, in *AddRequest, opts ...grpc.CallOption) (*AddResponse, error)
	Sample(ctx context.Context, in *SampleRequest, opts ...grpc.CallOption) (*SampleResponse, error)
	Stats(ctx context.Context, in *StatsRequest, opts ...grpc.CallOption) (*StatsResponse, error)
	Save(ctx context.Context, in *SaveRequest, opts ...grpc.CallOption) (*SaveResponse, error)
	Clear(ctx context.Context, in *ClearRequest, opts ...grpc.CallOption) (*ClearResponse, error)
}

type replayServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewReplayServiceClient wraps a connection. Calls use the CBOR codec.
func NewReplayServiceClient(cc grpc.ClientConnInterface) ReplayServiceClient {
	return &replayServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *replayServiceClient) Add(ctx context.Context, in *AddRequest, opts ...grpc.CallOption) (*AddResponse, error) {
	return invoke[AddResponse](ctx, c.cc, "Add", in, opts)
}

func (c *replayServiceClient) Sample(ctx context.Context, in *SampleRequest, opts ...grpc.CallOption) (*SampleResponse, error) {
	return invoke[SampleResponse](ctx, c.cc, "Sample", in, opts)
}

func (c *replayServiceClient) Stats(ctx context.Context, in *StatsRequest, opts ...grpc.CallOption) (*StatsResponse, error) {
	return invoke[StatsResponse](ctx, c.cc, "Stats", in, opts)
}

func (c *replayServiceClient) Save(ctx context.Context, in *SaveRequest, opts ...grpc.CallOption) (*SaveResponse, error) {
	return invoke[SaveResponse](ctx, c.cc, "Save", in, opts)
}

func (c *replayServiceClient) Clear(ctx context.Context, in *ClearRequest, opts ...grpc.CallOption) (*ClearResponse, error) {
	return invoke[ClearResponse](ctx, c.cc, "Clear", in, opts)
}
// #endregion service-client
