package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/booking_service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func linkedTeacher(id int64, tz string) *model.Teacher {
	return &model.Teacher{
		ID:           id,
		UserID:       id,
		DisplayName:  "Teacher",
		Timezone:     tz,
		CalendarID:   "cal@example.com",
		AccessToken:  strPtr("access"),
		RefreshToken: strPtr("refresh"),
	}
}

// Правило на каждый день недели, чтобы тесты не зависели от дня запуска
func everyDayRules(startHour, endHour int) []*model.WorkingHourRule {
	rules := make([]*model.WorkingHourRule, 0, 7)
	for wd := 0; wd < 7; wd++ {
		rules = append(rules, &model.WorkingHourRule{
			Weekday:   wd,
			StartHour: startHour,
			EndHour:   endHour,
			IsActive:  true,
		})
	}
	return rules
}

func newTestAvailabilityService(
	teachers *fakeTeacherStore,
	hours *fakeHoursStore,
	slots *fakeSlotStore,
	source *fakeSource,
) *AvailabilityService {
	return NewAvailabilityService(teachers, hours, slots, source, zap.NewNop()).
		WithClock(func() time.Time { return testNow })
}

func TestReconcileSubtractsBusy(t *testing.T) {
	teachers := newFakeTeacherStore(linkedTeacher(10, "UTC"))
	hours := &fakeHoursStore{rules: everyDayRules(9, 17)}
	slots := newFakeSlotStore()

	// Встреча завтра 10:00-11:00
	tomorrow := testNow.Add(24 * time.Hour).Truncate(24 * time.Hour)
	source := &fakeSource{busy: []model.Interval{
		{Start: tomorrow.Add(10 * time.Hour), End: tomorrow.Add(11 * time.Hour)},
	}}

	svc := newTestAvailabilityService(teachers, hours, slots, source)

	created, err := svc.Reconcile(context.Background(), 10, 3)
	require.NoError(t, err)
	require.Positive(t, created)

	require.Len(t, slots.replaced, 1)
	for _, interval := range slots.replaced[0] {
		assert.False(t, interval.Overlaps(model.Interval{
			Start: tomorrow.Add(10 * time.Hour),
			End:   tomorrow.Add(11 * time.Hour),
		}), "open interval overlaps busy time: %v", interval)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	teachers := newFakeTeacherStore(linkedTeacher(10, "UTC"))
	hours := &fakeHoursStore{rules: everyDayRules(9, 17)}
	slots := newFakeSlotStore()
	source := &fakeSource{}

	svc := newTestAvailabilityService(teachers, hours, slots, source)

	first, err := svc.Reconcile(context.Background(), 10, 7)
	require.NoError(t, err)
	second, err := svc.Reconcile(context.Background(), 10, 7)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, slots.replaced, 2)
	assert.Equal(t, slots.replaced[0], slots.replaced[1])
}

func TestReconcileUnknownTeacher(t *testing.T) {
	svc := newTestAvailabilityService(newFakeTeacherStore(), &fakeHoursStore{}, newFakeSlotStore(), &fakeSource{})

	_, err := svc.Reconcile(context.Background(), 404, 7)
	assert.ErrorIs(t, err, model.ErrTeacherNotFound)
}

func TestReconcileUnlinkedTeacher(t *testing.T) {
	teacher := linkedTeacher(10, "UTC")
	teacher.AccessToken = nil
	teacher.RefreshToken = nil
	teachers := newFakeTeacherStore(teacher)

	svc := newTestAvailabilityService(teachers, &fakeHoursStore{}, newFakeSlotStore(), &fakeSource{})

	_, err := svc.Reconcile(context.Background(), 10, 7)
	assert.ErrorIs(t, err, model.ErrCalendarNotLinked)
}

func TestReconcileNoWorkingHours(t *testing.T) {
	teachers := newFakeTeacherStore(linkedTeacher(10, "UTC"))
	slots := newFakeSlotStore()

	svc := newTestAvailabilityService(teachers, &fakeHoursStore{}, slots, &fakeSource{})

	_, err := svc.Reconcile(context.Background(), 10, 7)
	assert.ErrorIs(t, err, model.ErrNoWorkingHours)
	assert.Empty(t, slots.replaced)
}

func TestReconcileSourceUnavailable(t *testing.T) {
	teachers := newFakeTeacherStore(linkedTeacher(10, "UTC"))
	hours := &fakeHoursStore{rules: everyDayRules(9, 17)}
	slots := newFakeSlotStore()
	source := &fakeSource{err: model.ErrSourceUnavailable}

	svc := newTestAvailabilityService(teachers, hours, slots, source)

	_, err := svc.Reconcile(context.Background(), 10, 7)
	assert.ErrorIs(t, err, model.ErrSourceUnavailable)

	// Без занятости из календаря слоты не трогаем
	assert.Empty(t, slots.replaced)
}

func TestReconcileReauthClearsCredentials(t *testing.T) {
	teachers := newFakeTeacherStore(linkedTeacher(10, "UTC"))
	hours := &fakeHoursStore{rules: everyDayRules(9, 17)}
	slots := newFakeSlotStore()
	source := &fakeSource{err: model.ErrReauthRequired}

	svc := newTestAvailabilityService(teachers, hours, slots, source)

	_, err := svc.Reconcile(context.Background(), 10, 7)
	assert.ErrorIs(t, err, model.ErrReauthRequired)

	assert.Equal(t, []int64{10}, teachers.cleared)
	assert.Empty(t, slots.replaced)
}

func TestReconcileBusyCoversEverything(t *testing.T) {
	teachers := newFakeTeacherStore(linkedTeacher(10, "UTC"))
	hours := &fakeHoursStore{rules: everyDayRules(9, 17)}
	slots := newFakeSlotStore()
	source := &fakeSource{busy: []model.Interval{
		{Start: testNow.Add(-24 * time.Hour), End: testNow.Add(30 * 24 * time.Hour)},
	}}

	svc := newTestAvailabilityService(teachers, hours, slots, source)

	created, err := svc.Reconcile(context.Background(), 10, 7)
	require.NoError(t, err)
	assert.Zero(t, created)

	// Замена выполнена пустым набором - старые открытые слоты удалены
	require.Len(t, slots.replaced, 1)
	assert.Empty(t, slots.replaced[0])
}

func TestReconcileTreatsBookedAsBusy(t *testing.T) {
	teachers := newFakeTeacherStore(linkedTeacher(10, "UTC"))
	hours := &fakeHoursStore{rules: everyDayRules(9, 17)}
	slots := newFakeSlotStore()

	tomorrow := testNow.Add(24 * time.Hour).Truncate(24 * time.Hour)
	booked := model.Interval{Start: tomorrow.Add(13 * time.Hour), End: tomorrow.Add(14 * time.Hour)}
	slots.booked = []model.Interval{booked}

	svc := newTestAvailabilityService(teachers, hours, slots, &fakeSource{})

	_, err := svc.Reconcile(context.Background(), 10, 3)
	require.NoError(t, err)

	require.Len(t, slots.replaced, 1)
	for _, interval := range slots.replaced[0] {
		assert.False(t, interval.Overlaps(booked),
			"open interval overlaps booked lesson: %v", interval)
	}
}

func TestReconcileClipsFirstDayToNow(t *testing.T) {
	teachers := newFakeTeacherStore(linkedTeacher(10, "UTC"))
	// testNow 12:00 UTC внутри окна 9-17
	hours := &fakeHoursStore{rules: everyDayRules(9, 17)}
	slots := newFakeSlotStore()

	svc := newTestAvailabilityService(teachers, hours, slots, &fakeSource{})

	_, err := svc.Reconcile(context.Background(), 10, 1)
	require.NoError(t, err)

	require.Len(t, slots.replaced, 1)
	require.NotEmpty(t, slots.replaced[0])
	for _, interval := range slots.replaced[0] {
		assert.False(t, interval.Start.Before(testNow),
			"open interval starts in the past: %v", interval)
	}
}

// Одно и то же локальное правило 09:00-17:00 до и после перевода часов
// даёт разные UTC-моменты, но одинаковую длительность.
func TestReconcileAcrossDST(t *testing.T) {
	teachers := newFakeTeacherStore(linkedTeacher(10, "Europe/London"))
	hours := &fakeHoursStore{rules: everyDayRules(9, 17)}
	slots := newFakeSlotStore()

	// Пятница 2025-03-28, перевод часов в ночь на воскресенье 30-го
	dstEve := time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC)
	svc := NewAvailabilityService(teachers, hours, slots, &fakeSource{}, zap.NewNop()).
		WithClock(func() time.Time { return dstEve })

	_, err := svc.Reconcile(context.Background(), 10, 4)
	require.NoError(t, err)
	require.Len(t, slots.replaced, 1)

	byDay := make(map[string]model.Interval)
	for _, interval := range slots.replaced[0] {
		byDay[interval.Start.UTC().Format("2006-01-02")] = interval
	}

	saturday, ok := byDay["2025-03-29"]
	require.True(t, ok)
	sunday, ok := byDay["2025-03-30"]
	require.True(t, ok)

	// До перевода Лондон = UTC, после = UTC+1
	assert.Equal(t, 9, saturday.Start.UTC().Hour())
	assert.Equal(t, 8, sunday.Start.UTC().Hour())
	assert.Equal(t, 8*time.Hour, saturday.Duration())
	assert.Equal(t, 8*time.Hour, sunday.Duration())
}

func TestReconcileReplaceFailure(t *testing.T) {
	teachers := newFakeTeacherStore(linkedTeacher(10, "UTC"))
	hours := &fakeHoursStore{rules: everyDayRules(9, 17)}
	slots := newFakeSlotStore()
	slots.replaceErr = errors.New("db down")

	svc := newTestAvailabilityService(teachers, hours, slots, &fakeSource{})

	_, err := svc.Reconcile(context.Background(), 10, 7)
	require.Error(t, err)
	assert.Empty(t, slots.replaced)
}

func TestSyncAllIsolatesFailures(t *testing.T) {
	broken := linkedTeacher(10, "Not/AZone")
	healthy := linkedTeacher(11, "UTC")
	teachers := newFakeTeacherStore(broken, healthy)
	hours := &fakeHoursStore{rules: everyDayRules(9, 17)}
	slots := newFakeSlotStore()

	svc := newTestAvailabilityService(teachers, hours, slots, &fakeSource{})

	err := svc.SyncAll(context.Background(), 3)
	require.NoError(t, err)

	// Здоровый учитель синхронизировался несмотря на сбой соседа
	require.Len(t, slots.replaced, 1)
	require.NotEmpty(t, slots.replaced[0])
}

func TestSaveWorkingHours(t *testing.T) {
	teachers := newFakeTeacherStore(linkedTeacher(10, "UTC"))
	hours := &fakeHoursStore{}

	svc := newTestAvailabilityService(teachers, hours, newFakeSlotStore(), &fakeSource{})

	rules := []*model.WorkingHourRule{
		{Weekday: 1, StartHour: 9, EndHour: 13, IsActive: true},
		{Weekday: 3, StartHour: 14, EndHour: 18, IsActive: true},
	}
	require.NoError(t, svc.SaveWorkingHours(context.Background(), 10, rules))
	assert.Equal(t, rules, hours.saved)
}

func TestSaveWorkingHoursRejectsInvalid(t *testing.T) {
	teachers := newFakeTeacherStore(linkedTeacher(10, "UTC"))
	hours := &fakeHoursStore{}

	svc := newTestAvailabilityService(teachers, hours, newFakeSlotStore(), &fakeSource{})

	rules := []*model.WorkingHourRule{
		{Weekday: 1, StartHour: 13, EndHour: 9, IsActive: true},
	}
	err := svc.SaveWorkingHours(context.Background(), 10, rules)
	assert.ErrorIs(t, err, model.ErrInvalidWorkingHours)
	assert.Nil(t, hours.saved)
}

func TestSaveWorkingHoursUnknownTeacher(t *testing.T) {
	svc := newTestAvailabilityService(newFakeTeacherStore(), &fakeHoursStore{}, newFakeSlotStore(), &fakeSource{})

	err := svc.SaveWorkingHours(context.Background(), 404, everyDayRules(9, 17))
	assert.ErrorIs(t, err, model.ErrTeacherNotFound)
}
