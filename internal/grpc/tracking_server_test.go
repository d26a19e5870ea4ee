package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"foodDelivery/internal/auth"
	"foodDelivery/internal/orders"
	"foodDelivery/internal/testutil"
	"foodDelivery/models"
	"foodDelivery/repository"
)

type fixture struct {
	conn     *grpc.ClientConn
	svc      *orders.Service
	sessions *auth.Sessions
	adminID  int64
}

func newFixture(t *testing.T, dbName string) *fixture {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, dbName)
	orderRepo := repository.NewOrderRepository(d)
	driverRepo := repository.NewDriverRepository(d)
	admins := repository.NewAdminRepository(d)
	svc := orders.NewService(orderRepo, driverRepo, repository.NewOfferRepository(d))
	sessions := auth.NewSessions("grpc-secret", time.Hour, auth.NewMemoryStore())

	a, err := admins.Create(context.Background(), "root", "x", "Root")
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(sessions, svc, admins)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &fixture{conn: conn, svc: svc, sessions: sessions, adminID: a.ID}
}

func (f *fixture) place(t *testing.T) *models.Order {
	t.Helper()
	o, err := f.svc.Place(context.Background(), orders.PlaceRequest{
		CustomerName:    "Alice",
		CustomerPhone:   "+15550001",
		DeliveryAddress: "1 Main St",
		Items:           []models.LineItem{{Name: "Soup", Quantity: 1, Price: 7}},
	})
	require.NoError(t, err)
	return o
}

func (f *fixture) withToken(t *testing.T, p auth.Principal) context.Context {
	t.Helper()
	sess, err := f.sessions.Issue(context.Background(), p)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+sess.Token)
}

func TestTrackIsPublic(t *testing.T) {
	f := newFixture(t, "grpc_track")
	o := f.place(t)

	out := new(structpb.Struct)
	err := f.conn.Invoke(context.Background(), trackMethod, wrapperspb.String(o.OrderNumber), out)
	require.NoError(t, err)
	assert.Equal(t, float64(25), out.Fields["progress"].GetNumberValue())
	assert.Len(t, out.Fields["tracking"].GetListValue().GetValues(), 1)
	assert.Equal(t, o.OrderNumber, out.Fields["order"].GetStructValue().Fields["orderNumber"].GetStringValue())

	err = f.conn.Invoke(context.Background(), trackMethod, wrapperspb.String("9999"), out)
	assert.Equal(t, codes.NotFound, status.Code(err))

	err = f.conn.Invoke(context.Background(), trackMethod, wrapperspb.String(""), out)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestAdvanceRequiresAdmin(t *testing.T) {
	f := newFixture(t, "grpc_advance")
	o := f.place(t)
	out := new(structpb.Struct)

	err := f.conn.Invoke(context.Background(), advanceMethod, wrapperspb.Int64(o.ID), out)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	driverCtx := f.withToken(t, auth.Principal{ID: 7, Name: "Dan", Kind: auth.KindDriver})
	err = f.conn.Invoke(driverCtx, advanceMethod, wrapperspb.Int64(o.ID), out)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	adminCtx := f.withToken(t, auth.Principal{ID: f.adminID, Name: "Root", Kind: auth.KindAdmin})
	err = f.conn.Invoke(adminCtx, advanceMethod, wrapperspb.Int64(o.ID), out)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", out.Fields["status"].GetStringValue())

	err = f.conn.Invoke(adminCtx, advanceMethod, wrapperspb.Int64(9999), out)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestHealthIsPublic(t *testing.T) {
	f := newFixture(t, "grpc_health")
	resp, err := healthpb.NewHealthClient(f.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: trackingServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestToStatus(t *testing.T) {
	assert.Equal(t, codes.FailedPrecondition, status.Code(toStatus(orders.ErrInvalidTransition)))
	assert.Equal(t, codes.Aborted, status.Code(toStatus(orders.ErrConflict)))
	assert.Equal(t, codes.InvalidArgument, status.Code(toStatus(orders.ErrInvalidOrder)))
	assert.Equal(t, codes.Internal, status.Code(toStatus(context.DeadlineExceeded)))
}
