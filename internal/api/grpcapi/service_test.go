package grpcapi

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/xtding233/giftdraw/internal/gacha"
	"github.com/xtding233/giftdraw/internal/game"
	"github.com/xtding233/giftdraw/internal/storage/memory"
)

func startServer(t *testing.T) (*grpc.ClientConn, *memory.Store) {
	t.Helper()
	rules, err := game.DefaultRules()
	require.NoError(t, err)
	store := memory.New()
	engine, err := gacha.NewEngine(rules, store, gacha.WithRNG(gacha.NewSeededRNG(5)))
	require.NoError(t, err)
	log := logrus.New()
	log.SetOutput(io.Discard)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	Register(srv, NewService(engine, log))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, store
}

func TestDrawAndStats(t *testing.T) {
	conn, _ := startServer(t)
	c := NewClient(conn)
	ctx := context.Background()

	out, err := c.Draw(ctx, "42", "premium")
	require.NoError(t, err)
	assert.Equal(t, "42", out.Fields["player_id"].GetStringValue())
	assert.EqualValues(t, 100, out.Fields["cost"].GetNumberValue())
	anim := out.Fields["animation"].GetListValue().GetValues()
	require.Len(t, anim, gacha.AnimationLength)
	assert.Equal(t, out.Fields["item"].GetStringValue(), anim[len(anim)-1].GetStringValue())

	st, err := c.GetStats(ctx, "42")
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.Fields["total_draws"].GetNumberValue())
}

func TestErrorCodes(t *testing.T) {
	conn, store := startServer(t)
	c := NewClient(conn)
	ctx := context.Background()

	_, err := c.Draw(ctx, "42", "gold")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	store.FailNext("save", errors.New("disk full"))
	_, err = c.Draw(ctx, "42", "basic")
	assert.Equal(t, codes.Unavailable, status.Code(err))

	assert.Equal(t, codes.Internal, codeFor(gacha.ErrMalformedWeightTable))
}

func TestHealth(t *testing.T) {
	conn, _ := startServer(t)
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
