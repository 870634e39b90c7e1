// Package grpcserver exposes the aggregation engine over gRPC. The service
// is described by a hand-written grpc.ServiceDesc instead of protoc-gen-go
// output: internal/rpcpb's messages carry their own Marshal/Unmarshal and
// are wired into google.golang.org/grpc through a custom encoding.Codec
// (internal/rpcpb.Codec), registered under the "tapwire" content-subtype.
package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/graphprotocol/tap-aggregator/internal/audit"
	"github.com/graphprotocol/tap-aggregator/internal/rpcpb"
	"github.com/graphprotocol/tap-aggregator/internal/tap"
)

// Server adapts a tap.Engine to the AggregateReceipts gRPC service.
type Server struct {
	engine *tap.Engine
	audit  audit.Sink
}

// NewServer constructs a Server. sink may be nil, in which case no
// aggregation outcome is recorded.
func NewServer(engine *tap.Engine, sink audit.Sink) *Server {
	if sink == nil {
		sink = audit.NoopSink{}
	}
	return &Server{engine: engine, audit: sink}
}

func (s *Server) aggregateReceiptsV1(ctx context.Context, req *rpcpb.AggregateReceiptsV1Request) (*rpcpb.AggregateReceiptsV1Response, error) {
	receipts := make([]tap.SignedReceiptV1, len(req.Receipts))
	for i, r := range req.Receipts {
		receipts[i] = r.ToTap()
	}
	var previous *tap.SignedRavV1
	if req.PreviousRav != nil {
		t := req.PreviousRav.ToTap()
		previous = &t
	}

	result, err := s.engine.AggregateV1(ctx, tap.AggregateRequestV1{
		APIVersion:  req.APIVersion,
		Receipts:    receipts,
		PreviousRav: previous,
	})
	if err != nil {
		if kind, ok := tap.KindOf(err); ok {
			s.audit.RecordFailure(tap.V1, kind, err.Error())
		}
		return nil, toGRPCError(err)
	}
	s.audit.RecordSuccess(tap.V1, result.Rav.Message.AllocationID.Hex(), len(receipts))
	var warnings []string
	if result.Deprecated {
		warnings = []string{"api_version is deprecated"}
	}
	return &rpcpb.AggregateReceiptsV1Response{
		Rav:      rpcpb.SignedRavV1FromTap(result.Rav),
		Warnings: warnings,
	}, nil
}

func (s *Server) aggregateReceiptsV2(ctx context.Context, req *rpcpb.AggregateReceiptsV2Request) (*rpcpb.AggregateReceiptsV2Response, error) {
	receipts := make([]tap.SignedReceiptV2, len(req.Receipts))
	for i, r := range req.Receipts {
		receipts[i] = r.ToTap()
	}
	var previous *tap.SignedRavV2
	if req.PreviousRav != nil {
		t := req.PreviousRav.ToTap()
		previous = &t
	}

	result, err := s.engine.AggregateV2(ctx, tap.AggregateRequestV2{
		APIVersion:  req.APIVersion,
		Receipts:    receipts,
		PreviousRav: previous,
	})
	if err != nil {
		if kind, ok := tap.KindOf(err); ok {
			s.audit.RecordFailure(tap.V2, kind, err.Error())
		}
		return nil, toGRPCError(err)
	}
	s.audit.RecordSuccess(tap.V2, result.Rav.Message.CollectionID.Hex(), len(receipts))
	var warnings []string
	if result.Deprecated {
		warnings = []string{"api_version is deprecated"}
	}
	return &rpcpb.AggregateReceiptsV2Response{
		Rav:      rpcpb.SignedRavV2FromTap(result.Rav),
		Warnings: warnings,
	}, nil
}

func toGRPCError(err error) error {
	kind, ok := tap.KindOf(err)
	if !ok {
		return status.Error(codes.Internal, "internal error")
	}
	switch kind {
	case tap.SchemaError:
		return status.Error(codes.InvalidArgument, err.Error())
	case tap.SignatureError, tap.AuthorizationError:
		return status.Error(codes.PermissionDenied, err.Error())
	case tap.UniquenessError, tap.CoherenceError, tap.TimestampError, tap.OverflowError:
		return status.Error(codes.FailedPrecondition, err.Error())
	case tap.VersionError:
		return status.Error(codes.Unimplemented, err.Error())
	case tap.CancelledError:
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Unknown, err.Error())
	}
}

// ServiceDesc is the hand-written equivalent of a protoc-gen-go-grpc
// _ServiceDesc: one service, two unary methods, no streaming.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "tap.aggregator.v1.AggregatorService",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AggregateReceipts",
			Handler:    aggregateReceiptsV1Handler,
		},
		{
			MethodName: "AggregateReceiptsV2",
			Handler:    aggregateReceiptsV2Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tap/aggregator.proto",
}

func aggregateReceiptsV1Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(rpcpb.AggregateReceiptsV1Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	s := srv.(*Server)
	if interceptor == nil {
		return s.aggregateReceiptsV1(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/tap.aggregator.v1.AggregatorService/AggregateReceipts"}
	handler := func(ctx context.Context, req any) (any, error) {
		return s.aggregateReceiptsV1(ctx, req.(*rpcpb.AggregateReceiptsV1Request))
	}
	return interceptor(ctx, in, info, handler)
}

func aggregateReceiptsV2Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(rpcpb.AggregateReceiptsV2Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	s := srv.(*Server)
	if interceptor == nil {
		return s.aggregateReceiptsV2(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/tap.aggregator.v1.AggregatorService/AggregateReceiptsV2"}
	handler := func(ctx context.Context, req any) (any, error) {
		return s.aggregateReceiptsV2(ctx, req.(*rpcpb.AggregateReceiptsV2Request))
	}
	return interceptor(ctx, in, info, handler)
}

// Register registers the aggregation service onto grpcSrv.
func Register(grpcSrv *grpc.Server, engine *tap.Engine, sink audit.Sink) {
	grpcSrv.RegisterService(&ServiceDesc, NewServer(engine, sink))
}
