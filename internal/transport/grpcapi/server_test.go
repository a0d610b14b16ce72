package grpcapi

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"gorm.io/gorm"

	"github.com/Leganyst/counselling-platform/internal/calendar"
	"github.com/Leganyst/counselling-platform/internal/db"
	"github.com/Leganyst/counselling-platform/internal/model"
	"github.com/Leganyst/counselling-platform/internal/repository"
	"github.com/Leganyst/counselling-platform/internal/service"
)

type testEnv struct {
	db     *gorm.DB
	conn   *grpc.ClientConn
	client *BookingClient
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := db.OpenSQLiteMemory("grpc_" + uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(gdb))

	counsellorRepo := repository.NewGormCounsellorRepository(gdb)
	bookings := service.NewBookingService(
		repository.NewGormBookingRepository(gdb),
		counsellorRepo,
		repository.NewGormEventRepository(gdb),
		nil,
	)

	srv, _ := NewGRPCServer(bookings, nil)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &testEnv{db: gdb, conn: conn, client: NewBookingClient(conn)}
}

func asActor(actor calendar.Actor) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(),
		ActorIDHeader, actor.ID.String(),
		ActorRoleHeader, string(actor.Role),
	)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func (e *testEnv) seedCounsellor(t *testing.T) (*model.Counsellor, calendar.Actor) {
	t.Helper()
	c := &model.Counsellor{
		UserID:          uuid.New(),
		Specializations: []model.ServiceType{model.ServiceTypeAdmission},
		IsVerified:      true,
	}
	require.NoError(t, e.db.Create(c).Error)
	return c, calendar.Actor{ID: c.UserID, Role: model.RoleCounsellor}
}

func TestBookingServer_CreateAndTransition(t *testing.T) {
	e := setupServer(t)
	c, counsellor := e.seedCounsellor(t)
	s1 := calendar.Actor{ID: uuid.New(), Role: model.RoleStudent}
	s2 := calendar.Actor{ID: uuid.New(), Role: model.RoleStudent}

	req := mustStruct(t, map[string]any{
		"counsellorId": c.ID.String(),
		"serviceType":  "admission",
		"date":         time.Now().UTC().AddDate(0, 0, 3).Format(time.DateOnly),
		"timeSlot":     "14:30",
	})

	created, err := e.client.CreateBooking(asActor(s1), req)
	require.NoError(t, err)
	assert.Equal(t, "pending", created.Fields["status"].GetStringValue())
	id := created.Fields["id"].GetStringValue()

	_, err = e.client.CreateBooking(asActor(s2), req)
	st := status.Convert(err)
	assert.Equal(t, codes.AlreadyExists, st.Code())
	require.Len(t, st.Details(), 1)
	detail, ok := st.Details()[0].(*structpb.Struct)
	require.True(t, ok)
	assert.Equal(t, "14:30", detail.Fields["timeSlot"].GetStringValue())

	_, err = e.client.CreateBooking(asActor(counsellor), req)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = e.client.UpdateBookingStatus(asActor(counsellor), mustStruct(t, map[string]any{"id": id, "status": "cancelled"}))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	updated, err := e.client.UpdateBookingStatus(asActor(counsellor), mustStruct(t, map[string]any{"id": id, "status": "approved"}))
	require.NoError(t, err)
	assert.Equal(t, "approved", updated.Fields["status"].GetStringValue())

	_, err = e.client.UpdateBookingStatus(asActor(counsellor), mustStruct(t, map[string]any{"id": id, "status": "rejected"}))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = e.client.UpdateBookingStatus(asActor(counsellor), mustStruct(t, map[string]any{"id": id, "status": "done"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	got, err := e.client.GetBooking(asActor(s1), mustStruct(t, map[string]any{"id": id}))
	require.NoError(t, err)
	assert.Equal(t, "approved", got.Fields["status"].GetStringValue())

	_, err = e.client.GetBooking(asActor(s2), mustStruct(t, map[string]any{"id": id}))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = e.client.GetBooking(asActor(s1), mustStruct(t, map[string]any{"id": uuid.NewString()}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	list, err := e.client.ListBookings(asActor(s1), mustStruct(t, map[string]any{"limit": 5}))
	require.NoError(t, err)
	assert.Len(t, list.Fields["items"].GetListValue().GetValues(), 1)
	pagination := list.Fields["pagination"].GetStructValue()
	assert.Equal(t, float64(5), pagination.Fields["limit"].GetNumberValue())
	assert.Equal(t, float64(1), pagination.Fields["total"].GetNumberValue())
}

func TestBookingServer_AdminNotesOnlyFromString(t *testing.T) {
	e := setupServer(t)
	c, _ := e.seedCounsellor(t)
	s := calendar.Actor{ID: uuid.New(), Role: model.RoleStudent}
	adminActor := calendar.Actor{ID: uuid.New(), Role: model.RoleAdmin}

	created, err := e.client.CreateBooking(asActor(s), mustStruct(t, map[string]any{
		"counsellorId": c.ID.String(),
		"serviceType":  "admission",
		"date":         time.Now().UTC().AddDate(0, 0, 3).Format(time.DateOnly),
		"timeSlot":     "09:00",
	}))
	require.NoError(t, err)
	id := created.Fields["id"].GetStringValue()

	approved, err := e.client.UpdateBookingStatus(asActor(adminActor), mustStruct(t, map[string]any{
		"id": id, "status": "approved", "adminNotes": "call before session",
	}))
	require.NoError(t, err)
	assert.Equal(t, "call before session", approved.Fields["adminNotes"].GetStringValue())

	completed, err := e.client.UpdateBookingStatus(asActor(adminActor), mustStruct(t, map[string]any{
		"id": id, "status": "completed", "adminNotes": nil,
	}))
	require.NoError(t, err)
	assert.Equal(t, "completed", completed.Fields["status"].GetStringValue())
	assert.Equal(t, "call before session", completed.Fields["adminNotes"].GetStringValue())

	var stored model.Booking
	require.NoError(t, e.db.First(&stored, "id = ?", id).Error)
	assert.Equal(t, "call before session", stored.AdminNotes)
}

func TestBookingServer_RequiresActorMetadata(t *testing.T) {
	e := setupServer(t)

	_, err := e.client.GetBooking(context.Background(), mustStruct(t, map[string]any{"id": uuid.NewString()}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), ActorIDHeader, uuid.NewString(), ActorRoleHeader, "provider")
	_, err = e.client.GetBooking(bad, mustStruct(t, map[string]any{"id": uuid.NewString()}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestBookingServer_Health(t *testing.T) {
	e := setupServer(t)
	resp, err := grpc_health_v1.NewHealthClient(e.conn).Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
}
