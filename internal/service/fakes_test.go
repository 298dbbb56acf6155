package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/booking_service/internal/calendar"
	"github.com/Freeeeeet/booking_service/internal/model"
	"github.com/google/uuid"
)

// Фейки хранилищ для тестов. Условные операции повторяют семантику
// conditional UPDATE в БД: проверка и запись под одним мьютексом.

type fakeSlotStore struct {
	mu         sync.Mutex
	slots      map[int64]*model.AvailabilitySlot
	booked     []model.Interval
	replaced   [][]model.Interval
	replaceErr error
	releaseErr error
}

func newFakeSlotStore() *fakeSlotStore {
	return &fakeSlotStore{slots: make(map[int64]*model.AvailabilitySlot)}
}

func (f *fakeSlotStore) add(slot *model.AvailabilitySlot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots[slot.ID] = slot
}

func (f *fakeSlotStore) GetByID(_ context.Context, id int64) (*model.AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	slot, ok := f.slots[id]
	if !ok {
		return nil, nil
	}
	copied := *slot
	return &copied, nil
}

func (f *fakeSlotStore) GetOpen(_ context.Context, teacherID int64, from, to time.Time) ([]*model.AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var open []*model.AvailabilitySlot
	for _, slot := range f.slots {
		if slot.TeacherID == teacherID && slot.IsAvailable &&
			!slot.StartTime.Before(from) && slot.StartTime.Before(to) {
			copied := *slot
			open = append(open, &copied)
		}
	}
	return open, nil
}

func (f *fakeSlotStore) Claim(_ context.Context, slotID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	slot, ok := f.slots[slotID]
	if !ok || !slot.IsAvailable {
		return false, nil
	}
	slot.IsAvailable = false
	return true, nil
}

func (f *fakeSlotStore) Release(_ context.Context, slotID int64) error {
	if f.releaseErr != nil {
		return f.releaseErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if slot, ok := f.slots[slotID]; ok {
		slot.IsAvailable = true
	}
	return nil
}

func (f *fakeSlotStore) GetBookedIntervals(_ context.Context, _ int64, _ time.Time) ([]model.Interval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.booked, nil
}

func (f *fakeSlotStore) ReplaceFuture(_ context.Context, teacherID int64, _ time.Time, intervals []model.Interval, runID uuid.UUID) (int, error) {
	if f.replaceErr != nil {
		return 0, f.replaceErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaced = append(f.replaced, intervals)

	// Пересоздаём незабронированные открытые слоты как это делает БД
	var nextID int64 = 1
	for id, slot := range f.slots {
		if slot.IsAvailable {
			delete(f.slots, id)
		}
		if id >= nextID {
			nextID = id + 1
		}
	}
	for _, interval := range intervals {
		f.slots[nextID] = &model.AvailabilitySlot{
			ID:          nextID,
			TeacherID:   teacherID,
			StartTime:   interval.Start,
			EndTime:     interval.End,
			IsAvailable: true,
			SyncRunID:   runID,
		}
		nextID++
	}
	return len(intervals), nil
}

type fakeBookingStore struct {
	mu        sync.Mutex
	bookings  map[int64]*model.Booking
	nextID    int64
	createErr error
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{bookings: make(map[int64]*model.Booking), nextID: 1}
}

func (f *fakeBookingStore) Create(_ context.Context, booking *model.Booking) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	booking.ID = f.nextID
	f.nextID++
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	copied := *booking
	f.bookings[booking.ID] = &copied
	return nil
}

func (f *fakeBookingStore) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	copied := *booking
	return &copied, nil
}

func (f *fakeBookingStore) CancelConfirmed(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.bookings[id]
	if !ok || booking.Status != model.BookingStatusConfirmed {
		return false, nil
	}
	booking.Status = model.BookingStatusCancelled
	return true, nil
}

func (f *fakeBookingStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.bookings, id)
	return nil
}

func (f *fakeBookingStore) GetByStudentID(_ context.Context, studentID int64) ([]*model.Booking, error) {
	return f.listBy(func(b *model.Booking) bool { return b.StudentID == studentID }), nil
}

func (f *fakeBookingStore) GetByTeacherID(_ context.Context, teacherID int64) ([]*model.Booking, error) {
	return f.listBy(func(b *model.Booking) bool { return b.TeacherID == teacherID }), nil
}

func (f *fakeBookingStore) listBy(match func(*model.Booking) bool) []*model.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Booking
	for _, b := range f.bookings {
		if match(b) {
			copied := *b
			result = append(result, &copied)
		}
	}
	return result
}

func (f *fakeBookingStore) confirmedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, b := range f.bookings {
		if b.Status == model.BookingStatusConfirmed {
			count++
		}
	}
	return count
}

type fakeTicketStore struct {
	mu       sync.Mutex
	balances map[string]int
	debitErr error
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{balances: make(map[string]int)}
}

func key(userID int64, ticketType string) string {
	return fmt.Sprintf("%d/%s", userID, ticketType)
}

func (f *fakeTicketStore) set(userID int64, ticketType string, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[key(userID, ticketType)] = count
}

func (f *fakeTicketStore) get(userID int64, ticketType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[key(userID, ticketType)]
}

func (f *fakeTicketStore) GetBalance(_ context.Context, userID int64, ticketType string) (*model.TicketBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	remaining, ok := f.balances[key(userID, ticketType)]
	if !ok {
		return nil, nil
	}
	return &model.TicketBalance{UserID: userID, TicketType: ticketType, RemainingTickets: remaining}, nil
}

func (f *fakeTicketStore) Debit(_ context.Context, userID int64, ticketType string) (bool, error) {
	if f.debitErr != nil {
		return false, f.debitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(userID, ticketType)
	if f.balances[k] <= 0 {
		return false, nil
	}
	f.balances[k]--
	return true, nil
}

func (f *fakeTicketStore) Credit(_ context.Context, userID int64, ticketType string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[key(userID, ticketType)] += count
	return nil
}

type fakeUserStore struct {
	users map[int64]*model.User
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	if f.users == nil {
		return nil, nil
	}
	return f.users[id], nil
}

type fakeTeacherStore struct {
	mu       sync.Mutex
	teachers map[int64]*model.Teacher
	cleared  []int64
}

func newFakeTeacherStore(teachers ...*model.Teacher) *fakeTeacherStore {
	f := &fakeTeacherStore{teachers: make(map[int64]*model.Teacher)}
	for _, teacher := range teachers {
		f.teachers[teacher.ID] = teacher
	}
	return f
}

func (f *fakeTeacherStore) GetByID(_ context.Context, id int64) (*model.Teacher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.teachers[id], nil
}

func (f *fakeTeacherStore) GetLinked(_ context.Context) ([]*model.Teacher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var linked []*model.Teacher
	for _, teacher := range f.teachers {
		if teacher.CalendarLinked() {
			linked = append(linked, teacher)
		}
	}
	return linked, nil
}

func (f *fakeTeacherStore) ClearCredentials(_ context.Context, teacherID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, teacherID)
	if teacher, ok := f.teachers[teacherID]; ok {
		teacher.AccessToken = nil
		teacher.RefreshToken = nil
	}
	return nil
}

type fakeHoursStore struct {
	rules []*model.WorkingHourRule
	saved []*model.WorkingHourRule
}

func (f *fakeHoursStore) GetActiveByTeacher(_ context.Context, _ int64) ([]*model.WorkingHourRule, error) {
	return f.rules, nil
}

func (f *fakeHoursStore) ReplaceForTeacher(_ context.Context, _ int64, rules []*model.WorkingHourRule) error {
	f.saved = rules
	return nil
}

type fakeSource struct {
	mu    sync.Mutex
	busy  []model.Interval
	err   error
	calls int
}

func (f *fakeSource) BusyIntervals(_ context.Context, _ string, _, _ time.Time, _ calendar.Credentials) ([]model.Interval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.busy, nil
}

func (f *fakeSource) CreateEvent(_ context.Context, _ string, _ calendar.Event, _ calendar.Credentials) error {
	return nil
}
