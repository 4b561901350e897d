// Package diagnosticsv1 declares the wpdiag.v1.DiagnosticsEngine gRPC service. Requests
// and responses travel as google.protobuf.Struct so the snapshot and report schemas stay
// defined by their JSON form.
package diagnosticsv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "wpdiag.v1.DiagnosticsEngine"
	// EvaluateSnapshotMethod is the full method name used by clients and interceptors.
	EvaluateSnapshotMethod = "/" + ServiceName + "/EvaluateSnapshot"
)

// DiagnosticsEngineServer is the server API for the DiagnosticsEngine service.
type DiagnosticsEngineServer interface {
	EvaluateSnapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedDiagnosticsEngineServer can be embedded for forward compatibility.
type UnimplementedDiagnosticsEngineServer struct{}

// EvaluateSnapshot returns codes.Unimplemented.
func (UnimplementedDiagnosticsEngineServer) EvaluateSnapshot(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method EvaluateSnapshot not implemented")
}

// RegisterDiagnosticsEngineServer attaches srv to the gRPC registrar.
func RegisterDiagnosticsEngineServer(s grpc.ServiceRegistrar, srv DiagnosticsEngineServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func evaluateSnapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiagnosticsEngineServer).EvaluateSnapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: EvaluateSnapshotMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiagnosticsEngineServer).EvaluateSnapshot(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the grpc.ServiceDesc for the DiagnosticsEngine service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DiagnosticsEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "EvaluateSnapshot",
			Handler:    evaluateSnapshotHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wpdiag/v1/diagnostics.proto",
}

// DiagnosticsEngineClient is the client API for the DiagnosticsEngine service.
type DiagnosticsEngineClient interface {
	EvaluateSnapshot(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type diagnosticsEngineClient struct {
	cc grpc.ClientConnInterface
}

// NewDiagnosticsEngineClient wraps a client connection.
func NewDiagnosticsEngineClient(cc grpc.ClientConnInterface) DiagnosticsEngineClient {
	return &diagnosticsEngineClient{cc: cc}
}

func (c *diagnosticsEngineClient) EvaluateSnapshot(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, EvaluateSnapshotMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
