package server

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sverreng/dtss/internal/router"
	"github.com/sverreng/dtss/internal/series"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "dtss.Router"

// Handler is the request handling capability the server exposes over
// the wire. The router implements it; the server depends only on this
// interface, never on the concrete router type.
type Handler interface {
	Read(ctx context.Context, ids []string, period series.Period) ([]router.Result, error)
	Find(ctx context.Context, query string) ([]series.Info, error)
}

// RouterServer is the wire-level service interface registered with
// gRPC.
type RouterServer interface {
	Read(ctx context.Context, req *ReadRequest) (*ReadResponse, error)
	Find(ctx context.Context, req *FindRequest) (*FindResponse, error)
}

// routerService adapts a Handler to the wire payloads and maps errors
// to gRPC status codes.
type routerService struct {
	handler   Handler
	validator *RequestValidator
}

// NewRouterService wraps a handler for registration.
func NewRouterService(h Handler) RouterServer {
	return &routerService{
		handler:   h,
		validator: NewRequestValidator(),
	}
}

func (s *routerService) Read(ctx context.Context, req *ReadRequest) (*ReadResponse, error) {
	if err := s.validator.ValidateRead(req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	results, err := s.handler.Read(ctx, req.TsIDs, req.period())
	if err != nil {
		return nil, routingStatus(err)
	}

	resp := &ReadResponse{Results: make([]SeriesResult, 0, len(results))}
	for _, res := range results {
		resp.Results = append(resp.Results, toSeriesResult(res.ID, res.Series, res.Err))
	}
	return resp, nil
}

func (s *routerService) Find(ctx context.Context, req *FindRequest) (*FindResponse, error) {
	if err := s.validator.ValidateFind(req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	infos, err := s.handler.Find(ctx, req.Query)
	if err != nil {
		return nil, routingStatus(err)
	}

	resp := &FindResponse{Infos: make([]InfoResult, 0, len(infos))}
	for _, info := range infos {
		resp.Infos = append(resp.Infos, toInfoResult(info))
	}
	return resp, nil
}

// routingStatus maps router errors onto gRPC codes. Requests the
// router cannot route at all are the caller's fault; everything else
// is internal.
func routingStatus(err error) error {
	var invalid *series.InvalidIdentifierError
	var unknown *router.UnknownSchemeError
	switch {
	case errors.As(err, &invalid), errors.As(err, &unknown):
		return status.Errorf(codes.InvalidArgument, "%v", err)
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%v", err)
	default:
		return status.Errorf(codes.Internal, "query failed: %v", err)
	}
}

func _Router_Read_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ReadRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RouterServer).Read(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/Read",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RouterServer).Read(ctx, req.(*ReadRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Router_Find_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(FindRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RouterServer).Find(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/Find",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RouterServer).Find(ctx, req.(*FindRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// RouterServiceDesc is the hand-written service descriptor for
// dtss.Router. No generated code; the JSON codec carries the payloads.
var RouterServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RouterServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Read",
			Handler:    _Router_Read_Handler,
		},
		{
			MethodName: "Find",
			Handler:    _Router_Find_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dtss/router",
}
