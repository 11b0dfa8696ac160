package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// The control service uses well-known protobuf types only, so its
// descriptor is declared here instead of being generated from a .proto.

const (
	ServiceName = "seriescanon.Control"

	healthMethod      = "/" + ServiceName + "/Health"
	listSourcesMethod = "/" + ServiceName + "/ListSources"
	triggerRunMethod  = "/" + ServiceName + "/TriggerRun"
	latestRunsMethod  = "/" + ServiceName + "/LatestRuns"
)

// ControlServer is the server API for the control service.
type ControlServer interface {
	Health(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListSources(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	TriggerRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LatestRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// -----------------------------------------------------------------------------

func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&controlServiceDesc, srv)
}

// -----------------------------------------------------------------------------

var controlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: healthHandler},
		{MethodName: "ListSources", Handler: listSourcesHandler},
		{MethodName: "TriggerRun", Handler: triggerRunHandler},
		{MethodName: "LatestRuns", Handler: latestRunsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "series_canon_control",
}

// -----------------------------------------------------------------------------

func healthHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: healthMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).Health(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// -----------------------------------------------------------------------------

func listSourcesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).ListSources(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listSourcesMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).ListSources(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// -----------------------------------------------------------------------------

func triggerRunHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).TriggerRun(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: triggerRunMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).TriggerRun(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// -----------------------------------------------------------------------------

func latestRunsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).LatestRuns(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: latestRunsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).LatestRuns(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

// ControlClient calls the control service over an existing connection.
type ControlClient struct {
	cc grpc.ClientConnInterface
}

func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

// -----------------------------------------------------------------------------

func (c *ControlClient) Health(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, healthMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (c *ControlClient) ListSources(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listSourcesMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// TriggerRun processes the pending extracts of one source.
func (c *ControlClient) TriggerRun(ctx context.Context, source string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]interface{}{"source": source})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, triggerRunMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// LatestRuns returns the last report per source. An empty source means all.
func (c *ControlClient) LatestRuns(ctx context.Context, source string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]interface{}{"source": source})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, latestRunsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
