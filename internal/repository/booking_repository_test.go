package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/counselling-platform/internal/db"
	"github.com/Leganyst/counselling-platform/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenSQLiteMemory("repo_" + uuid.NewString())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := model.AutoMigrate(gdb); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func seedCounsellor(t *testing.T, gdb *gorm.DB, verified bool) *model.Counsellor {
	t.Helper()
	c := &model.Counsellor{
		UserID:          uuid.New(),
		Specializations: []model.ServiceType{model.ServiceTypeCareer, model.ServiceTypeAcademic},
		Experience:      5,
		IsVerified:      verified,
		HourlyRate:      40,
	}
	if err := gdb.Create(c).Error; err != nil {
		t.Fatalf("seed counsellor: %v", err)
	}
	return c
}

func newBooking(counsellorID uuid.UUID, day time.Time, slot string) *model.Booking {
	return &model.Booking{
		StudentID:    uuid.New(),
		CounsellorID: counsellorID,
		ServiceType:  model.ServiceTypeCareer,
		Date:         model.NewDate(day),
		TimeSlot:     slot,
		Status:       model.BookingStatusPending,
	}
}

var testDay = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

func TestActiveSlotIndex_RejectsSecondActiveInsert(t *testing.T) {
	gdb := newTestDB(t)
	c := seedCounsellor(t, gdb, true)

	if err := insertBooking(gdb, newBooking(c.ID, testDay, "10:00")); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	// Вставка в обход предпроверки: индекс должен отклонить дубликат.
	err := insertBooking(gdb, newBooking(c.ID, testDay, "10:00"))
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("second insert: expected ErrSlotTaken, got %v", err)
	}

	// Другой слот и другая дата не конфликтуют.
	if err := insertBooking(gdb, newBooking(c.ID, testDay, "11:00")); err != nil {
		t.Fatalf("other slot: %v", err)
	}
	if err := insertBooking(gdb, newBooking(c.ID, testDay.AddDate(0, 0, 1), "10:00")); err != nil {
		t.Fatalf("other day: %v", err)
	}
}

func TestActiveSlotIndex_IgnoresCancelledAndRejected(t *testing.T) {
	gdb := newTestDB(t)
	c := seedCounsellor(t, gdb, true)

	for _, st := range []model.BookingStatus{model.BookingStatusCancelled, model.BookingStatusRejected, model.BookingStatusCancelled} {
		b := newBooking(c.ID, testDay, "10:00")
		b.Status = st
		if err := insertBooking(gdb, b); err != nil {
			t.Fatalf("insert %s: %v", st, err)
		}
	}
	if err := insertBooking(gdb, newBooking(c.ID, testDay, "10:00")); err != nil {
		t.Fatalf("insert pending over inactive rows: %v", err)
	}
}

func TestActiveSlotIndex_CompletedStaysActive(t *testing.T) {
	gdb := newTestDB(t)
	c := seedCounsellor(t, gdb, true)

	b := newBooking(c.ID, testDay, "10:00")
	b.Status = model.BookingStatusCompleted
	if err := insertBooking(gdb, b); err != nil {
		t.Fatalf("insert completed: %v", err)
	}
	if err := insertBooking(gdb, newBooking(c.ID, testDay, "10:00")); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken over completed booking, got %v", err)
	}
}

func TestGormBookingRepository_CreateChecksSlotAndWritesEvent(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewGormBookingRepository(gdb)
	events := NewGormEventRepository(gdb)
	c := seedCounsellor(t, gdb, true)
	ctx := context.Background()

	first := newBooking(c.ID, testDay, "10:00")
	ev := &model.BookingEvent{
		EventType: model.EventTypeBookingCreated,
		ActorID:   first.StudentID,
		ActorRole: model.RoleStudent,
		ToStatus:  model.BookingStatusPending,
	}
	if err := repo.Create(ctx, first, ev); err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == uuid.Nil || first.Version != 1 {
		t.Fatalf("expected id and version 1, got %s / %d", first.ID, first.Version)
	}

	err := repo.Create(ctx, newBooking(c.ID, testDay, "10:00"), nil)
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	list, err := events.ListByBooking(ctx, first.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(list) != 1 || list[0].EventType != model.EventTypeBookingCreated {
		t.Fatalf("unexpected events: %+v", list)
	}

	// Время суток в дате не влияет на поиск слота.
	var got model.Booking
	if err := activeSlotQuery(gdb.WithContext(ctx), c.ID, testDay.Add(15*time.Hour), "10:00").First(&got).Error; err != nil {
		t.Fatalf("find active: %v", err)
	}
	if got.ID != first.ID {
		t.Fatalf("active booking = %s, want %s", got.ID, first.ID)
	}
	if !got.Day().Equal(testDay) {
		t.Fatalf("stored date = %v, want %v", got.Day(), testDay)
	}
}

func TestGormBookingRepository_UpdateStatusCompareAndSwap(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewGormBookingRepository(gdb)
	c := seedCounsellor(t, gdb, true)
	ctx := context.Background()

	b := newBooking(c.ID, testDay, "10:00")
	if err := repo.Create(ctx, b, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	upd := StatusUpdate{
		BookingID:    b.ID,
		CounsellorID: c.ID,
		FromStatus:   model.BookingStatusPending,
		FromVersion:  b.Version,
		ToStatus:     model.BookingStatusApproved,
		ActorID:      c.UserID,
		ActorRole:    model.RoleCounsellor,
	}
	approved, err := repo.UpdateStatus(ctx, upd)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != model.BookingStatusApproved || approved.Version != 2 {
		t.Fatalf("unexpected booking after approve: %s v%d", approved.Status, approved.Version)
	}

	// Та же попытка со старой версией проигрывает.
	if _, err := repo.UpdateStatus(ctx, upd); !errors.Is(err, ErrStaleStatus) {
		t.Fatalf("expected ErrStaleStatus, got %v", err)
	}
}

func TestGormBookingRepository_CompletionIncrementsSessions(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewGormBookingRepository(gdb)
	counsellors := NewGormCounsellorRepository(gdb)
	events := NewGormEventRepository(gdb)
	c := seedCounsellor(t, gdb, true)
	ctx := context.Background()

	b := newBooking(c.ID, testDay, "10:00")
	b.Status = model.BookingStatusApproved
	if err := repo.Create(ctx, b, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	notes := "attended"
	done, err := repo.UpdateStatus(ctx, StatusUpdate{
		BookingID:    b.ID,
		CounsellorID: c.ID,
		FromStatus:   model.BookingStatusApproved,
		FromVersion:  b.Version,
		ToStatus:     model.BookingStatusCompleted,
		AdminNotes:   &notes,
		ActorID:      uuid.New(),
		ActorRole:    model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.AdminNotes != notes {
		t.Fatalf("admin notes = %q, want %q", done.AdminNotes, notes)
	}

	got, err := counsellors.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("load counsellor: %v", err)
	}
	if got.TotalSessions != 1 {
		t.Fatalf("total sessions = %d, want 1", got.TotalSessions)
	}

	list, err := events.ListByBooking(ctx, b.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(list) != 1 || list[0].FromStatus != model.BookingStatusApproved || list[0].ToStatus != model.BookingStatusCompleted {
		t.Fatalf("unexpected events: %+v", list)
	}
}

func TestGormBookingRepository_CompletionRollsBackWithoutCounsellor(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewGormBookingRepository(gdb)
	c := seedCounsellor(t, gdb, true)
	ctx := context.Background()

	b := newBooking(c.ID, testDay, "10:00")
	b.Status = model.BookingStatusApproved
	if err := repo.Create(ctx, b, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := repo.UpdateStatus(ctx, StatusUpdate{
		BookingID:    b.ID,
		CounsellorID: uuid.New(),
		FromStatus:   model.BookingStatusApproved,
		FromVersion:  b.Version,
		ToStatus:     model.BookingStatusCompleted,
		ActorID:      uuid.New(),
		ActorRole:    model.RoleAdmin,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != model.BookingStatusApproved {
		t.Fatalf("status must be rolled back, got %s", got.Status)
	}
}

func TestGormBookingRepository_ListFilters(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewGormBookingRepository(gdb)
	c1 := seedCounsellor(t, gdb, true)
	c2 := seedCounsellor(t, gdb, true)
	ctx := context.Background()

	student := uuid.New()
	for i, slot := range []string{"09:00", "10:00", "11:00"} {
		b := newBooking(c1.ID, testDay, slot)
		b.StudentID = student
		if i == 2 {
			b.Status = model.BookingStatusCancelled
		}
		if err := repo.Create(ctx, b, nil); err != nil {
			t.Fatalf("create %s: %v", slot, err)
		}
	}
	if err := repo.Create(ctx, newBooking(c2.ID, testDay, "09:00"), nil); err != nil {
		t.Fatalf("create other: %v", err)
	}

	items, total, err := repo.List(ctx, BookingFilter{StudentID: &student}, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("student list: total=%d len=%d", total, len(items))
	}
	if items[0].TimeSlot != "11:00" {
		t.Fatalf("expected newest slot first, got %s", items[0].TimeSlot)
	}

	_, total, err = repo.List(ctx, BookingFilter{CounsellorID: &c1.ID, Status: model.BookingStatusPending}, 10, 0)
	if err != nil {
		t.Fatalf("list by counsellor: %v", err)
	}
	if total != 2 {
		t.Fatalf("pending for c1 = %d, want 2", total)
	}

	_, total, err = repo.List(ctx, BookingFilter{}, 0, 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if total != 4 {
		t.Fatalf("all = %d, want 4", total)
	}
}

func TestGormBookingRepository_GetByIDNotFound(t *testing.T) {
	repo := NewGormBookingRepository(newTestDB(t))
	if _, err := repo.GetByID(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
