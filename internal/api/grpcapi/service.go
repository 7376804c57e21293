// Package grpcapi exposes Draw and GetStats over gRPC. Messages are
// google.protobuf.Struct, so no generated stubs are needed.
package grpcapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xtding233/giftdraw/internal/gacha"
)

const ServiceName = "giftdraw.v1.DrawService"

const (
	drawMethod     = "/" + ServiceName + "/Draw"
	getStatsMethod = "/" + ServiceName + "/GetStats"
)

// DrawServer is the server API for giftdraw.v1.DrawService.
type DrawServer interface {
	Draw(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DrawServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Draw", Handler: drawHandler},
		{MethodName: "GetStats", Handler: getStatsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "giftdraw/v1/draw.proto",
}

func drawHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DrawServer).Draw(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: drawMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DrawServer).Draw(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getStatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DrawServer).GetStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getStatsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DrawServer).GetStats(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Service implements DrawServer on top of the engine.
type Service struct {
	engine *gacha.Engine
	log    logrus.FieldLogger
}

func NewService(engine *gacha.Engine, log logrus.FieldLogger) *Service {
	return &Service{engine: engine, log: log}
}

// Register adds the draw service and the standard health service to s.
func Register(s *grpc.Server, svc DrawServer) *health.Server {
	s.RegisterService(&ServiceDesc, svc)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return hs
}

func (s *Service) Draw(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	playerID := in.GetFields()["player_id"].GetStringValue()
	tier := in.GetFields()["tier"].GetStringValue()
	res, err := s.engine.Draw(ctx, playerID, gacha.Tier(tier))
	if err != nil {
		return nil, s.toStatus(err)
	}
	out, err := toStruct(res)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	anim := s.engine.Animation(res.Item)
	vals := make([]any, len(anim))
	for i, it := range anim {
		vals[i] = string(it)
	}
	list, err := structpb.NewList(vals)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out.Fields["animation"] = structpb.NewListValue(list)
	return out, nil
}

func (s *Service) GetStats(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	st, err := s.engine.Stats(ctx, in.GetFields()["player_id"].GetStringValue())
	if err != nil {
		return nil, s.toStatus(err)
	}
	out, err := toStruct(st)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Service) toStatus(err error) error {
	code := codeFor(err)
	if code == codes.Internal || code == codes.Unavailable {
		s.log.WithError(err).Error("grpc draw failed")
	}
	return status.Error(code, err.Error())
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, gacha.ErrInvalidTier), errors.Is(err, gacha.ErrInvalidPlayer):
		return codes.InvalidArgument
	case errors.Is(err, gacha.ErrStoreUnavailable):
		return codes.Unavailable
	case errors.Is(err, gacha.ErrMalformedWeightTable):
		return codes.Internal
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

// toStruct converts a JSON-tagged value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return structpb.NewStruct(m)
}

// Client is a thin client for giftdraw.v1.DrawService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Draw(ctx context.Context, playerID string, tier gacha.Tier, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"player_id": playerID, "tier": string(tier)})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, drawMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetStats(ctx context.Context, playerID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"player_id": playerID})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getStatsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
