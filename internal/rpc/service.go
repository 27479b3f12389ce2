// Package rpc exposes the catalog as the tattr.v1.Catalog gRPC service.
//
// Messages are google.protobuf.Struct values, so the service needs no
// generated code:
//
//	Query        {tokens: [string]}                              -> {hosts: [string]}
//	GetHost      {hostname: string}                              -> {host: Host}
//	ListHosts    {tags: [string], attrs: ["name" | "name=value"]} -> {hosts: [Host]}
//	RegisterHost {hostname, tags: [string], attributes: {k: v}}  -> {host: Host}
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "tattr.v1.Catalog"

const (
	methodQuery        = "Query"
	methodGetHost      = "GetHost"
	methodListHosts    = "ListHosts"
	methodRegisterHost = "RegisterHost"
)

// CatalogServer is the server API for the tattr.v1.Catalog service.
type CatalogServer interface {
	Query(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetHost(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListHosts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterHost(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: methodQuery, Handler: unaryHandler(methodQuery, CatalogServer.Query)},
		{MethodName: methodGetHost, Handler: unaryHandler(methodGetHost, CatalogServer.GetHost)},
		{MethodName: methodListHosts, Handler: unaryHandler(methodListHosts, CatalogServer.ListHosts)},
		{MethodName: methodRegisterHost, Handler: unaryHandler(methodRegisterHost, CatalogServer.RegisterHost)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tattr/v1/catalog.proto",
}

func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type unaryCall func(CatalogServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CatalogServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CatalogServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
