package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "cnis.v1.ExtractionService"

// ExtractionServer is the server API of cnis.v1.ExtractionService. Requests and responses are
// protobuf well-known types so no generated code is needed.
type ExtractionServer interface {
	RegisterDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProcessDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EnqueueDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProbeEnvironment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportCase(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
}

func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&ExtractionServiceDesc, srv)
}

var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("RegisterDocument", func(s ExtractionServer, ctx context.Context, in *structpb.Struct) (any, error) {
			return s.RegisterDocument(ctx, in)
		}),
		unary("ProcessDocument", func(s ExtractionServer, ctx context.Context, in *structpb.Struct) (any, error) {
			return s.ProcessDocument(ctx, in)
		}),
		unary("EnqueueDocument", func(s ExtractionServer, ctx context.Context, in *structpb.Struct) (any, error) {
			return s.EnqueueDocument(ctx, in)
		}),
		unary("ProbeEnvironment", func(s ExtractionServer, ctx context.Context, in *structpb.Struct) (any, error) {
			return s.ProbeEnvironment(ctx, in)
		}),
		unary("ExportCase", func(s ExtractionServer, ctx context.Context, in *structpb.Struct) (any, error) {
			return s.ExportCase(ctx, in)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cnis/v1/extraction.proto",
}

type methodFunc func(s ExtractionServer, ctx context.Context, in *structpb.Struct) (any, error)

func unary(name string, call methodFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ExtractionServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(ExtractionServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}
