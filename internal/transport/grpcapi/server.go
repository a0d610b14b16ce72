package grpcapi

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Leganyst/counselling-platform/internal/apperr"
	"github.com/Leganyst/counselling-platform/internal/calendar"
	"github.com/Leganyst/counselling-platform/internal/model"
	"github.com/Leganyst/counselling-platform/internal/service"
)

// Заголовки, которые выставляет доверенный шлюз.
const (
	ActorIDHeader   = "x-actor-id"
	ActorRoleHeader = "x-actor-role"
)

type BookingSvc interface {
	CreateBooking(ctx context.Context, in service.CreateBookingInput) (*model.Booking, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, actor calendar.Actor, target string, adminNotes *string) (*model.Booking, error)
	GetBooking(ctx context.Context, actor calendar.Actor, id uuid.UUID) (*model.Booking, error)
	ListBookings(ctx context.Context, actor calendar.Actor, in service.ListBookingsInput) (calendar.Page[model.Booking], error)
}

type Server struct {
	bookings BookingSvc
}

func NewServer(bookings BookingSvc) *Server {
	return &Server{bookings: bookings}
}

// NewGRPCServer собирает grpc.Server с сервисом бронирования, health и reflection.
func NewGRPCServer(bookings BookingSvc, log *zap.Logger) (*grpc.Server, *health.Server) {
	if log == nil {
		log = zap.NewNop()
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(LoggingInterceptor(log.Named("grpc"))))
	RegisterBookingServer(srv, NewServer(bookings))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(srv)
	return srv, healthServer
}

// LoggingInterceptor пишет метод, код и длительность каждого вызова.
func LoggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("latency", time.Since(start)),
		}
		if code == codes.Internal || code == codes.Unknown {
			log.Error("grpc request", fields...)
		} else {
			log.Info("grpc request", fields...)
		}
		return resp, err
	}
}

func (s *Server) CreateBooking(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsStudent() {
		return nil, toStatus(apperr.Forbidden("only students can create bookings"))
	}

	counsellorID, err := uuid.Parse(stringField(in, "counsellorId"))
	if err != nil {
		return nil, toStatus(apperr.Validation("invalid counsellorId"))
	}
	date, err := calendar.ParseDate(stringField(in, "date"))
	if err != nil {
		return nil, toStatus(apperr.Validation("%s", err.Error()))
	}

	b, err := s.bookings.CreateBooking(ctx, service.CreateBookingInput{
		StudentID:    actor.ID,
		CounsellorID: counsellorID,
		ServiceType:  stringField(in, "serviceType"),
		Date:         date,
		TimeSlot:     stringField(in, "timeSlot"),
		Notes:        stringField(in, "notes"),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return bookingStruct(b)
}

func (s *Server) GetBooking(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := idField(in)
	if err != nil {
		return nil, err
	}
	b, err := s.bookings.GetBooking(ctx, actor, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return bookingStruct(b)
}

func (s *Server) UpdateBookingStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := idField(in)
	if err != nil {
		return nil, err
	}

	// Только строковое значение меняет заметки; null и прочие типы — как отсутствие поля.
	var adminNotes *string
	if v, ok := in.GetFields()["adminNotes"].GetKind().(*structpb.Value_StringValue); ok {
		notes := v.StringValue
		adminNotes = &notes
	}

	b, err := s.bookings.TransitionStatus(ctx, id, actor, stringField(in, "status"), adminNotes)
	if err != nil {
		return nil, toStatus(err)
	}
	return bookingStruct(b)
}

func (s *Server) ListBookings(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	page, err := s.bookings.ListBookings(ctx, actor, service.ListBookingsInput{
		Status:   stringField(in, "status"),
		Page:     intField(in, "page"),
		PageSize: intField(in, "limit"),
	})
	if err != nil {
		return nil, toStatus(err)
	}

	items := make([]any, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, bookingMap(&page.Items[i]))
	}
	out, err := structpb.NewStruct(map[string]any{
		"items": items,
		"pagination": map[string]any{
			"page":       page.Page,
			"limit":      page.PageSize,
			"total":      page.Total,
			"totalPages": page.TotalPages(),
		},
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func actorFromContext(ctx context.Context) (calendar.Actor, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return calendar.Actor{}, status.Error(codes.Unauthenticated, "missing actor metadata")
	}
	actor, err := calendar.ValidateActor(first(md.Get(ActorIDHeader)), first(md.Get(ActorRoleHeader)))
	if err != nil {
		return calendar.Actor{}, status.Errorf(codes.Unauthenticated, "invalid actor: %v", err)
	}
	return actor, nil
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func stringField(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

func intField(in *structpb.Struct, key string) int {
	return int(in.GetFields()[key].GetNumberValue())
}

func idField(in *structpb.Struct) (uuid.UUID, error) {
	id, err := uuid.Parse(stringField(in, "id"))
	if err != nil {
		return uuid.Nil, toStatus(apperr.Validation("invalid id"))
	}
	return id, nil
}

func bookingMap(b *model.Booking) map[string]any {
	return map[string]any{
		"id":           b.ID.String(),
		"studentId":    b.StudentID.String(),
		"counsellorId": b.CounsellorID.String(),
		"serviceType":  string(b.ServiceType),
		"date":         b.Day().Format(time.DateOnly),
		"timeSlot":     b.TimeSlot,
		"status":       string(b.Status),
		"notes":        b.Notes,
		"adminNotes":   b.AdminNotes,
		"createdAt":    b.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":    b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func bookingStruct(b *model.Booking) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(bookingMap(b))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode booking: %v", err)
	}
	return out, nil
}

// toStatus переводит доменную ошибку в статус gRPC; поля ошибки уходят в details.
func toStatus(err error) error {
	st := status.Convert(apperr.GRPCStatus(err))
	fields := apperr.FieldsOf(err)
	if len(fields) == 0 || st.Code() == codes.Internal {
		return st.Err()
	}
	m := make(map[string]any, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	detail, derr := structpb.NewStruct(m)
	if derr != nil {
		return st.Err()
	}
	withDetails, derr := st.WithDetails(detail)
	if derr != nil {
		return st.Err()
	}
	return withDetails.Err()
}
