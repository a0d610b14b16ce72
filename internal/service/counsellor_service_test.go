package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/Leganyst/counselling-platform/internal/apperr"
	"github.com/Leganyst/counselling-platform/internal/calendar"
	"github.com/Leganyst/counselling-platform/internal/model"
)

func TestRegisterCounsellor(t *testing.T) {
	f := newFixture(t)
	svc := NewCounsellorService(f.counsellors, nil)
	ctx := context.Background()
	actor := calendar.Actor{ID: uuid.New(), Role: model.RoleCounsellor}

	c, err := svc.RegisterCounsellor(ctx, actor, RegisterCounsellorInput{
		Specializations: []string{"career", "academic", "career"},
		Experience:      7,
		HourlyRate:      30,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if c.IsVerified || c.UserID != actor.ID {
		t.Fatalf("unexpected profile: %+v", c)
	}
	if len(c.Specializations) != 2 {
		t.Fatalf("specializations must be deduplicated, got %v", c.Specializations)
	}

	_, err = svc.RegisterCounsellor(ctx, actor, RegisterCounsellorInput{Specializations: []string{"career"}})
	requireKind(t, err, apperr.KindConflict)

	byUser, err := svc.GetCounsellorByUserID(ctx, actor.ID)
	if err != nil || byUser.ID != c.ID {
		t.Fatalf("get by user: %v", err)
	}
	_, err = svc.GetCounsellor(ctx, uuid.New())
	requireKind(t, err, apperr.KindNotFound)
}

func TestRegisterCounsellor_Validation(t *testing.T) {
	f := newFixture(t)
	svc := NewCounsellorService(f.counsellors, nil)
	ctx := context.Background()
	actor := calendar.Actor{ID: uuid.New(), Role: model.RoleCounsellor}

	cases := map[string]RegisterCounsellorInput{
		"no specializations":     {},
		"unknown specialization": {Specializations: []string{"therapy"}},
		"negative experience":    {Specializations: []string{"career"}, Experience: -1},
		"experience above limit": {Specializations: []string{"career"}, Experience: 51},
		"negative hourly rate":   {Specializations: []string{"career"}, HourlyRate: -5},
	}
	for name, in := range cases {
		_, err := svc.RegisterCounsellor(ctx, actor, in)
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}

	_, err := svc.RegisterCounsellor(ctx, student(), RegisterCounsellorInput{Specializations: []string{"career"}})
	requireKind(t, err, apperr.KindForbidden)
}

func TestSetVerified_AdminOnlyAndUnlocksBooking(t *testing.T) {
	f := newFixture(t)
	svc := NewCounsellorService(f.counsellors, nil)
	c := f.counsellor(t, false)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, bookingInput(uuid.New(), c.ID, "10:00"))
	requireKind(t, err, apperr.KindInvalidState)

	_, err = svc.SetVerified(ctx, counsellorActor(c), c.ID, true)
	requireKind(t, err, apperr.KindForbidden)

	got, err := svc.SetVerified(ctx, admin(), c.ID, true)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !got.IsVerified {
		t.Fatalf("expected verified counsellor")
	}

	if _, err := f.svc.CreateBooking(ctx, bookingInput(uuid.New(), c.ID, "10:00")); err != nil {
		t.Fatalf("create after verification: %v", err)
	}

	_, err = svc.SetVerified(ctx, admin(), uuid.New(), true)
	requireKind(t, err, apperr.KindNotFound)
}

func TestListCounsellors(t *testing.T) {
	f := newFixture(t)
	svc := NewCounsellorService(f.counsellors, nil)
	ctx := context.Background()

	f.counsellor(t, true)
	f.counsellor(t, false)

	page, err := svc.ListCounsellors(ctx, ListCounsellorsInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("verified page: total=%d len=%d", page.Total, len(page.Items))
	}

	page, err = svc.ListCounsellors(ctx, ListCounsellorsInput{Specialization: "placement"})
	if err != nil {
		t.Fatalf("list placement: %v", err)
	}
	if page.Total != 0 || page.Items == nil {
		t.Fatalf("expected empty non-nil page, got %+v", page)
	}

	_, err = svc.ListCounsellors(ctx, ListCounsellorsInput{Specialization: "therapy"})
	requireKind(t, err, apperr.KindValidation)
}

func TestListPendingCounsellors(t *testing.T) {
	f := newFixture(t)
	svc := NewCounsellorService(f.counsellors, nil)
	ctx := context.Background()

	f.counsellor(t, true)
	actor := calendar.Actor{ID: uuid.New(), Role: model.RoleCounsellor}
	registered, err := svc.RegisterCounsellor(ctx, actor, RegisterCounsellorInput{
		Specializations: []string{"career"},
		Experience:      3,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	public, err := svc.ListCounsellors(ctx, ListCounsellorsInput{})
	if err != nil {
		t.Fatalf("public list: %v", err)
	}
	for _, c := range public.Items {
		if c.ID == registered.ID {
			t.Fatalf("unverified counsellor %s is in the public list", c.ID)
		}
	}

	pending, err := svc.ListPendingCounsellors(ctx, admin(), 1, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending.Total != 1 || pending.Items[0].ID != registered.ID {
		t.Fatalf("pending: total=%d items=%+v", pending.Total, pending.Items)
	}

	_, err = svc.ListPendingCounsellors(ctx, student(), 1, 10)
	requireKind(t, err, apperr.KindForbidden)
	_, err = svc.ListPendingCounsellors(ctx, actor, 1, 10)
	requireKind(t, err, apperr.KindForbidden)

	if _, err := svc.SetVerified(ctx, admin(), registered.ID, true); err != nil {
		t.Fatalf("verify: %v", err)
	}
	pending, err = svc.ListPendingCounsellors(ctx, admin(), 1, 10)
	if err != nil {
		t.Fatalf("pending after verify: %v", err)
	}
	if pending.Total != 0 {
		t.Fatalf("pending after verify: total=%d", pending.Total)
	}
}
