package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the admin service.
const ServiceName = "charm.v1.Admin"

// Full method names.
const (
	MethodLogin    = "/" + ServiceName + "/Login"
	MethodLogout   = "/" + ServiceName + "/Logout"
	MethodListLogs = "/" + ServiceName + "/ListLogs"
	MethodGetLog   = "/" + ServiceName + "/GetLog"
	MethodGetPost  = "/" + ServiceName + "/GetPost"
)

// AdminServer is the server API of the admin service. Every message is a
// google.protobuf.Struct keyed by column names.
type AdminServer interface {
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListLogs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLog(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPost(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unary(name, full string, call func(AdminServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if ic == nil {
				return call(srv.(AdminServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AdminServer), ctx, req.(*structpb.Struct))
			}
			return ic(ctx, in, info, handler)
		},
	}
}

// AdminServiceDesc describes charm.v1.Admin for grpc.Server.RegisterService.
var AdminServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Login", MethodLogin, AdminServer.Login),
		unary("Logout", MethodLogout, AdminServer.Logout),
		unary("ListLogs", MethodListLogs, AdminServer.ListLogs),
		unary("GetLog", MethodGetLog, AdminServer.GetLog),
		unary("GetPost", MethodGetPost, AdminServer.GetPost),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "charm/v1/admin.proto",
}

// RegisterAdminServer registers srv on s.
func RegisterAdminServer(s grpc.ServiceRegistrar, srv AdminServer) {
	s.RegisterService(&AdminServiceDesc, srv)
}

// AdminClient is the client API of the admin service.
type AdminClient struct {
	cc grpc.ClientConnInterface
}

// NewAdminClient wraps a client connection.
func NewAdminClient(cc grpc.ClientConnInterface) *AdminClient {
	return &AdminClient{cc: cc}
}

func (c *AdminClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Login calls Admin.Login.
func (c *AdminClient) Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodLogin, in, opts...)
}

// Logout calls Admin.Logout.
func (c *AdminClient) Logout(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodLogout, in, opts...)
}

// ListLogs calls Admin.ListLogs.
func (c *AdminClient) ListLogs(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListLogs, in, opts...)
}

// GetLog calls Admin.GetLog.
func (c *AdminClient) GetLog(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetLog, in, opts...)
}

// GetPost calls Admin.GetPost.
func (c *AdminClient) GetPost(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetPost, in, opts...)
}
