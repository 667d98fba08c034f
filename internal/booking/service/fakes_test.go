package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	bookingErrors "cinebook/internal/booking/errors"
	"cinebook/internal/booking/repository"
	"cinebook/internal/payment"
	"cinebook/pkg/config"
	"cinebook/pkg/logger"
	"cinebook/pkg/model"

	"github.com/jonboulle/clockwork"
)

// memShows mirrors the conditional update semantics of the Mongo repository:
// each SwapSeat is atomic with respect to every other call.
type memShows struct {
	mu      sync.Mutex
	shows   map[string]*model.Show
	screens map[string]*model.Screen

	// beforeSwap runs under no lock just before a swap is applied.
	beforeSwap func(swap repository.SeatSwap)
	swapErr    func(swap repository.SeatSwap) error
	findCalls  int
}

func newMemShows(shows ...*model.Show) *memShows {
	m := &memShows{shows: map[string]*model.Show{}, screens: map[string]*model.Screen{}}
	for _, s := range shows {
		m.shows[s.ID] = copyShow(s)
	}
	return m
}

func copyShow(s *model.Show) *model.Show {
	cp := *s
	cp.SeatTiers = make([]model.SeatTier, len(s.SeatTiers))
	for i, t := range s.SeatTiers {
		ct := t
		ct.Rows = append([]string(nil), t.Rows...)
		ct.OccupiedSeats = make(map[string]string, len(t.OccupiedSeats))
		for k, v := range t.OccupiedSeats {
			ct.OccupiedSeats[k] = v
		}
		cp.SeatTiers[i] = ct
	}
	return &cp
}

func (m *memShows) FindShow(_ context.Context, showID string) (*model.Show, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	s, ok := m.shows[showID]
	if !ok {
		return nil, bookingErrors.ErrShowNotFound
	}
	return copyShow(s), nil
}

func (m *memShows) FindScreen(_ context.Context, screenID string) (*model.Screen, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.screens[screenID]
	if !ok {
		return nil, bookingErrors.ErrScreenNotFound
	}
	return s, nil
}

func (m *memShows) SwapSeat(_ context.Context, swap repository.SeatSwap) (bool, error) {
	if m.beforeSwap != nil {
		m.beforeSwap(swap)
	}
	if m.swapErr != nil {
		if err := m.swapErr(swap); err != nil {
			return false, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	show, ok := m.shows[swap.ShowID]
	if !ok {
		return false, nil
	}
	if model.IsFree(swap.Expected) {
		if len(show.SeatTiers) != swap.TierCount {
			return false, nil
		}
		for _, t := range show.SeatTiers {
			if _, taken := t.OccupiedSeats[swap.SeatID]; taken {
				return false, nil
			}
		}
	} else if show.SeatTiers[swap.Tier].OccupiedSeats[swap.SeatID] != swap.Expected.Marker() {
		return false, nil
	}

	tier := &show.SeatTiers[swap.Tier]
	if tier.OccupiedSeats == nil {
		tier.OccupiedSeats = map[string]string{}
	}
	if model.IsFree(swap.Next) {
		delete(tier.OccupiedSeats, swap.SeatID)
	} else {
		tier.OccupiedSeats[swap.SeatID] = swap.Next.Marker()
	}
	switch {
	case model.IsFree(swap.Expected) && !model.IsFree(swap.Next):
		show.OccupiedCount++
	case !model.IsFree(swap.Expected) && model.IsFree(swap.Next):
		show.OccupiedCount--
	}
	return true, nil
}

// marker returns the stored marker for seatID across all tiers.
func (m *memShows) marker(showID, seatID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.shows[showID].SeatTiers {
		if v, ok := t.OccupiedSeats[seatID]; ok {
			return v
		}
	}
	return ""
}

func (m *memShows) occupiedCount(showID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shows[showID].OccupiedCount
}

func (m *memShows) setMarker(showID string, tier int, seatID, marker string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shows[showID].SeatTiers[tier].OccupiedSeats[seatID] = marker
	m.shows[showID].OccupiedCount++
}

func (m *memShows) setTierPrice(showID string, tier int, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shows[showID].SeatTiers[tier].Price = price
}

type memBookings struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
}

func newMemBookings() *memBookings {
	return &memBookings{bookings: map[string]*model.Booking{}}
}

func copyBooking(b *model.Booking) *model.Booking {
	cp := *b
	cp.Seats = append([]model.BookedSeat(nil), b.Seats...)
	return &cp
}

func (m *memBookings) Create(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = repository.NewBookingID()
	}
	if _, ok := m.bookings[b.ID]; ok {
		return fmt.Errorf("duplicate booking %s", b.ID)
	}
	m.bookings[b.ID] = copyBooking(b)
	return nil
}

func (m *memBookings) FindByID(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingErrors.ErrBookingNotFound
	}
	return copyBooking(b), nil
}

func (m *memBookings) FindBySessionID(_ context.Context, sessionID string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.PaymentSessionID == sessionID {
			return copyBooking(b), nil
		}
	}
	return nil, bookingErrors.ErrBookingNotFound
}

func (m *memBookings) FindByUser(_ context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, copyBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if int(offset) >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memBookings) CountByUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, b := range m.bookings {
		if b.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memBookings) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return bookingErrors.ErrBookingNotFound
	}
	delete(m.bookings, id)
	return nil
}

func (m *memBookings) DeleteUnpaid(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.IsPaid {
		return false, nil
	}
	delete(m.bookings, id)
	return true, nil
}

func (m *memBookings) SetPaymentSession(_ context.Context, id, sessionID, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.IsPaid {
		return bookingErrors.ErrBookingNotFound
	}
	b.PaymentSessionID = sessionID
	b.PaymentLink = link
	return nil
}

func (m *memBookings) MarkPaid(_ context.Context, id, paymentIntentID string, paidAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.IsPaid || b.Status != model.BookingPending {
		return false, nil
	}
	b.IsPaid = true
	b.Status = model.BookingConfirmed
	b.PaidAt = &paidAt
	b.PaymentLink = ""
	if paymentIntentID != "" {
		b.PaymentIntentID = paymentIntentID
	}
	return true, nil
}

func (m *memBookings) MarkCancelled(_ context.Context, id, expectedStatus string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != expectedStatus || (expectedStatus == model.BookingPending && b.IsPaid) {
		return false, nil
	}
	b.Status = model.BookingCancelled
	b.CancelledAt = &at
	b.PaymentLink = ""
	return true, nil
}

func (m *memBookings) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

type memTasks struct {
	mu        sync.Mutex
	tasks     map[string]*model.ExpiryTask
	completed map[string]int
	err       error
}

func newMemTasks() *memTasks {
	return &memTasks{tasks: map[string]*model.ExpiryTask{}, completed: map[string]int{}}
}

func (m *memTasks) Schedule(_ context.Context, task *model.ExpiryTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.tasks[task.ID]; !ok {
		cp := *task
		m.tasks[task.ID] = &cp
	}
	return nil
}

func (m *memTasks) Complete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed[id]++
	if t, ok := m.tasks[id]; ok {
		t.Status = model.TaskDone
	}
	return nil
}

func (m *memTasks) get(id string) *model.ExpiryTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

type mockGateway struct {
	mu sync.Mutex

	CreateSessionFunc   func(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
	RetrieveSessionFunc func(ctx context.Context, sessionID string) (*payment.Session, error)
	ParseWebhookFunc    func(payload []byte, signature string) (*payment.WebhookEvent, error)

	sessions map[string]*payment.Session
	requests []payment.SessionRequest
	expired  []string
}

func newMockGateway() *mockGateway {
	return &mockGateway{sessions: map[string]*payment.Session{}}
}

func (g *mockGateway) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	if g.CreateSessionFunc != nil {
		return g.CreateSessionFunc(ctx, req)
	}
	bookingID := req.Metadata[payment.MetadataBookingID]
	var total int64
	for _, it := range req.LineItems {
		total += it.UnitAmount * it.Quantity
	}
	s := &payment.Session{
		ID:            "cs_" + bookingID,
		URL:           "https://checkout.example.com/" + bookingID,
		PaymentStatus: "unpaid",
		AmountTotal:   total,
		Metadata:      req.Metadata,
	}
	g.mu.Lock()
	g.sessions[s.ID] = s
	g.mu.Unlock()
	return s, nil
}

func (g *mockGateway) RetrieveSession(ctx context.Context, sessionID string) (*payment.Session, error) {
	if g.RetrieveSessionFunc != nil {
		return g.RetrieveSessionFunc(ctx, sessionID)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[sessionID]
	if !ok {
		return nil, payment.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (g *mockGateway) ExpireSession(_ context.Context, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expired = append(g.expired, sessionID)
	return nil
}

func (g *mockGateway) ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	if g.ParseWebhookFunc != nil {
		return g.ParseWebhookFunc(payload, signature)
	}
	return nil, payment.ErrInvalidSignature
}

func (g *mockGateway) markPaid(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[sessionID].PaymentStatus = payment.PaymentStatusPaid
	g.sessions[sessionID].PaymentIntentID = "pi_" + sessionID
}

type mockNotifier struct {
	mu        sync.Mutex
	confirmed []model.BookingNotification
	cancelled []model.BookingNotification
	err       error
}

func (n *mockNotifier) BookingConfirmed(_ context.Context, note model.BookingNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, note)
	return n.err
}

func (n *mockNotifier) BookingCancelled(_ context.Context, note model.BookingNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, note)
	return n.err
}

type recordingEvents struct {
	mu     sync.Mutex
	states []string
}

func (e *recordingEvents) SeatsChanged(_ context.Context, _ string, _ []string, state string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states = append(e.states, state)
	return nil
}

type recordingQueue struct {
	events []model.SettlementEvent
	err    error
}

func (q *recordingQueue) Enqueue(_ context.Context, event model.SettlementEvent) error {
	q.events = append(q.events, event)
	return q.err
}

const testShowID = "show-1"

var showStart = time.Date(2026, 6, 12, 19, 0, 0, 0, time.UTC)

func testShow() *model.Show {
	return &model.Show{
		ID:         testShowID,
		MovieID:    "movie-1",
		TheatreID:  "theatre-1",
		ScreenID:   "screen-1",
		StartTime:  showStart,
		IsActive:   true,
		TotalSeats: 60,
		SeatTiers: []model.SeatTier{
			{Name: "Standard", Price: 150, Rows: []string{"A", "B", "C"}, SeatsPerRow: 10, OccupiedSeats: map[string]string{}},
			{Name: "Premium", Price: 250, Rows: []string{"D", "E", "F"}, SeatsPerRow: 10, OccupiedSeats: map[string]string{}},
		},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Log:                logger.Discard(),
		HoldTTL:            10 * time.Minute,
		MaxSeatsPerBooking: 10,
		CancellationCutoff: 2 * time.Hour,
		PaymentCurrency:    "inr",
		PaymentSuccessURL:  "https://cinebook.example.com/success",
		PaymentCancelURL:   "https://cinebook.example.com/cancel",
	}
}

// harness wires every service against the in-memory fakes.
type harness struct {
	shows    *memShows
	bookings *memBookings
	tasks    *memTasks
	gateway  *mockGateway
	notifier *mockNotifier
	events   *recordingEvents
	clock    *clockwork.FakeClock
	queue    *recordingQueue

	reservation  ReservationService
	settlement   SettlementService
	expiry       ExpiryService
	cancellation CancellationService
	query        QueryService
}

func newHarness() *harness {
	h := &harness{
		shows:    newMemShows(testShow()),
		bookings: newMemBookings(),
		tasks:    newMemTasks(),
		gateway:  newMockGateway(),
		notifier: &mockNotifier{},
		events:   &recordingEvents{},
		clock:    clockwork.NewFakeClockAt(showStart.Add(-24 * time.Hour)),
		queue:    &recordingQueue{},
	}
	deps := Deps{
		Shows:    h.shows,
		Bookings: h.bookings,
		Tasks:    h.tasks,
		Gateway:  h.gateway,
		Notifier: h.notifier,
		Events:   h.events,
		Clock:    h.clock,
	}
	cfg := testConfig()
	h.reservation = NewReservationService(deps, cfg)
	h.settlement = NewSettlementService(deps, h.queue, cfg)
	h.expiry = NewExpiryService(deps, cfg)
	h.cancellation = NewCancellationService(deps, cfg)
	h.query = NewQueryService(deps, cfg)
	return h
}

// setNow moves the fake clock forward to t.
func (h *harness) setNow(t time.Time) {
	h.clock.Advance(t.Sub(h.clock.Now()))
}

func user(id string) model.Identity {
	return model.Identity{UserID: id, Role: model.RoleUser, Email: id + "@example.com"}
}
