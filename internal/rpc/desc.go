package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "clipkeep.v1.History"

// historyServer is the handler type checked by grpc.Server.RegisterService.
type historyServer interface {
	Watch(*WatchRequest, grpc.ServerStream) error
}

// unary adapts a Service method to a grpc.MethodDesc, running it through the
// server's interceptor chain when one is installed.
func unary[Req, Resp any](name string, fn func(*Service, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			svc := srv.(*Service)
			if interceptor == nil {
				return fn(svc, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(svc, ctx, req.(*Req))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*historyServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListHistory", (*Service).ListHistory),
		unary("GetRecord", (*Service).GetRecord),
		unary("GetImage", (*Service).GetImage),
		unary("OpenRecord", (*Service).OpenRecord),
		unary("DeleteRecord", (*Service).DeleteRecord),
		unary("SetFavorite", (*Service).SetFavorite),
		unary("ToggleFavorite", (*Service).ToggleFavorite),
		unary("ClearHistory", (*Service).ClearHistory),
		unary("PasteRecord", (*Service).PasteRecord),
		unary("Copy", (*Service).Copy),
		unary("Status", (*Service).Status),
		unary("GetSettings", (*Service).GetSettings),
		unary("UpdateSettings", (*Service).UpdateSettings),
		unary("ListTemplates", (*Service).ListTemplates),
		unary("GetTemplate", (*Service).GetTemplate),
		unary("CreateTemplate", (*Service).CreateTemplate),
		unary("UpdateTemplate", (*Service).UpdateTemplate),
		unary("DeleteTemplate", (*Service).DeleteTemplate),
		unary("ToggleTemplate", (*Service).ToggleTemplate),
		unary("ResolveTemplate", (*Service).ResolveTemplate),
		unary("SyncShortcuts", (*Service).SyncShortcuts),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(WatchRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(*Service).Watch(in, stream)
			},
		},
	},
	Metadata: "clipkeep/v1/history",
}
