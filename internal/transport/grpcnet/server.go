// Package grpcnet implements transport.Transport/transport.Handler over a
// real google.golang.org/grpc client and server, without protoc-generated
// stubs: the nine RPCs are registered directly against a hand-built
// grpc.ServiceDesc, and messages cross the wire through a custom JSON
// encoding.Codec instead of the protobuf wire format.
package grpcnet

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"chordring/internal/domain"
	"chordring/internal/logger"
	"chordring/internal/ring"
	"chordring/internal/transport"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// serviceName is the RPC service path every method below is registered
// under ("/chord.v1.Chord/<Method>").
const serviceName = "chord.v1.Chord"

// Server adapts a transport.Handler to grpc's ServiceDesc registration
// mechanism.
type Server struct {
	handler transport.Handler
	space   ring.Space
	lgr     logger.Logger
}

// NewServer wraps handler for registration with a *grpc.Server via
// RegisterService.
func NewServer(handler transport.Handler, space ring.Space, lgr logger.Logger) *Server {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	return &Server{handler: handler, space: space, lgr: lgr}
}

// RegisterService attaches this server to a *grpc.Server under the
// hand-built ServiceDesc.
func (s *Server) RegisterService(gs *grpc.Server) {
	gs.RegisterService(&serviceDesc, s)
}

func (s *Server) toGRPCError(err error) error {
	switch err {
	case nil:
		return nil
	case transport.ErrNotFound:
		return status.Error(codes.NotFound, err.Error())
	case domain.ErrNotResponsible:
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}

func (s *Server) findSuccessorForId(ctx context.Context, req any) (any, error) {
	r := req.(*findSuccessorRequest)
	id, err := parseID(s.space, r.ID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	node, err := s.handler.HandleFindSuccessorForId(ctx, id)
	if err != nil {
		return nil, s.toGRPCError(err)
	}
	return &nodeResponse{Node: toWireNode(node)}, nil
}

func (s *Server) getSuccessorId(ctx context.Context, req any) (any, error) {
	node, err := s.handler.HandleGetSuccessorId(ctx)
	if err != nil {
		return nil, s.toGRPCError(err)
	}
	return &nodeResponse{Node: toWireNode(node)}, nil
}

func (s *Server) getPredecessor(ctx context.Context, req any) (any, error) {
	node, err := s.handler.HandleGetPredecessor(ctx)
	if err != nil {
		return nil, s.toGRPCError(err)
	}
	return &nodeResponse{Node: toWireNode(node)}, nil
}

func (s *Server) notify(ctx context.Context, req any) (any, error) {
	r := req.(*notifyRequest)
	var candidate *domain.Node
	if r.Candidate != nil {
		id, err := parseID(s.space, r.Candidate.ID)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		candidate = &domain.Node{ID: id, Addr: r.Candidate.Addr}
	}
	if err := s.handler.HandleNotify(ctx, candidate); err != nil {
		return nil, s.toGRPCError(err)
	}
	return &emptyResponse{}, nil
}

func (s *Server) ping(ctx context.Context, req any) (any, error) {
	if err := s.handler.HandlePing(ctx); err != nil {
		return nil, s.toGRPCError(err)
	}
	return &emptyResponse{}, nil
}

func (s *Server) getSuccessorsList(ctx context.Context, req any) (any, error) {
	nodes, err := s.handler.HandleGetSuccessorsList(ctx)
	if err != nil {
		return nil, s.toGRPCError(err)
	}
	wireNodes := make([]*wireNode, len(nodes))
	for i, n := range nodes {
		wireNodes[i] = toWireNode(n)
	}
	return &successorsListResponse{Nodes: wireNodes}, nil
}

func (s *Server) getStorageValue(ctx context.Context, req any) (any, error) {
	r := req.(*storageKeyRequest)
	key, err := parseID(s.space, r.Key)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	val, err := s.handler.HandleGetStorageValue(ctx, key)
	if err != nil {
		return nil, s.toGRPCError(err)
	}
	return &storageValueResponse{Value: val}, nil
}

func (s *Server) storeValue(ctx context.Context, req any) (any, error) {
	r := req.(*storeValueRequest)
	key, err := parseID(s.space, r.Key)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res := domain.Resource{Key: key, RawKey: r.RawKey, Value: r.Value}
	if err := s.handler.HandleStoreValue(ctx, res); err != nil {
		return nil, s.toGRPCError(err)
	}
	return &emptyResponse{}, nil
}

func (s *Server) removeValue(ctx context.Context, req any) (any, error) {
	r := req.(*storageKeyRequest)
	key, err := parseID(s.space, r.Key)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.handler.HandleRemoveValue(ctx, key); err != nil {
		return nil, s.toGRPCError(err)
	}
	return &emptyResponse{}, nil
}

// methodDesc builds a grpc.MethodDesc the way protoc-gen-go-grpc would:
// decode into a fresh zero value of the request type, then dispatch
// through the (possibly nil) interceptor exactly like generated code does.
func methodDesc[Req any](name string, fn func(*Server, context.Context, any) (any, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*Server)
			if interceptor == nil {
				return fn(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/" + serviceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(s, ctx, req)
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc[findSuccessorRequest]("FindSuccessorForId", (*Server).findSuccessorForId),
		methodDesc[emptyRequest]("GetSuccessorId", (*Server).getSuccessorId),
		methodDesc[emptyRequest]("GetPredecessor", (*Server).getPredecessor),
		methodDesc[notifyRequest]("Notify", (*Server).notify),
		methodDesc[emptyRequest]("Ping", (*Server).ping),
		methodDesc[emptyRequest]("GetSuccessorsList", (*Server).getSuccessorsList),
		methodDesc[storageKeyRequest]("GetStorageValue", (*Server).getStorageValue),
		methodDesc[storeValueRequest]("StoreValue", (*Server).storeValue),
		methodDesc[storageKeyRequest]("RemoveValue", (*Server).removeValue),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chord/v1/chord.proto",
}
