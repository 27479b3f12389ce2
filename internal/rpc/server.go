package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/metorial/tattr/internal/catalog"
	"github.com/metorial/tattr/internal/logger"
)

type Server struct {
	catalog *catalog.Catalog
}

var _ CatalogServer = (*Server)(nil)

func NewServer(c *catalog.Catalog) *Server {
	return &Server{catalog: c}
}

func (s *Server) Query(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tokens, err := stringListField(req, "tokens")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	hosts, err := s.catalog.Hosts().QueryNames(ctx, tokens)
	if err != nil {
		return nil, toStatus(methodQuery, err)
	}

	return newStruct(map[string]interface{}{"hosts": stringsValue(hosts)})
}

func (s *Server) GetHost(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	hostname, err := stringField(req, "hostname")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	host, err := s.catalog.Hosts().Get(ctx, hostname)
	if err != nil {
		return nil, toStatus(methodGetHost, err)
	}

	return newStruct(map[string]interface{}{"host": hostValue(host)})
}

func (s *Server) ListHosts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tags, err := stringListField(req, "tags")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	attrs, err := stringListField(req, "attrs")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	q := s.catalog.Hosts().Filter()
	for _, tag := range tags {
		q = q.FilterTag(tag)
	}
	for _, attr := range attrs {
		q = q.Where(catalog.ParseAttrFilter(attr))
	}

	hosts, err := q.List(ctx)
	if err != nil {
		return nil, toStatus(methodListHosts, err)
	}

	out := make([]interface{}, 0, len(hosts))
	for i := range hosts {
		out = append(out, hostValue(&hosts[i]))
	}
	return newStruct(map[string]interface{}{"hosts": out})
}

func (s *Server) RegisterHost(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := hostFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	host, err := s.catalog.Hosts().Register(ctx, in.Hostname, in.Tags, in.Attributes)
	if err != nil {
		return nil, toStatus(methodRegisterHost, err)
	}
	logger.Infow("Registered host", "host", host.Hostname, "tags", len(host.Tags), "attributes", len(host.Attributes))

	return newStruct(map[string]interface{}{"host": hostValue(host)})
}

func newStruct(m map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		logger.Errorf("Error encoding response: %v", err)
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

// toStatus maps catalog errors to gRPC status codes.
func toStatus(method string, err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, catalog.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, catalog.ErrInUse):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, catalog.ErrInvalidQuery), errors.Is(err, catalog.ErrEmptyName):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		logger.Errorf("Error handling %s: %v", method, err)
		return status.Error(codes.Internal, "internal error")
	}
}
