package service

import (
	"context"
	"time"

	"cinebook/internal/booking/seatmap"
	"cinebook/pkg/config"
	apperrors "cinebook/pkg/errors"
	"cinebook/pkg/model"

	"golang.org/x/sync/errgroup"
)

// SeatSnapshot is the public view of a show's seat map. It never exposes
// booking or user identifiers.
type SeatSnapshot struct {
	ShowID        string         `json:"show_id"`
	StartTime     time.Time      `json:"start_time"`
	IsActive      bool           `json:"is_active"`
	TotalSeats    int            `json:"total_seats"`
	OccupiedCount int            `json:"occupied_count"`
	Tiers         []TierSnapshot `json:"tiers"`
}

type TierSnapshot struct {
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Rows        []string `json:"rows"`
	SeatsPerRow int      `json:"seats_per_row"`
	Locked      []string `json:"locked"`
	Occupied    []string `json:"occupied"`
}

type QueryService interface {
	SeatSnapshot(ctx context.Context, showID string) (*SeatSnapshot, error)
	ListMyBookings(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error)
	GetBooking(ctx context.Context, identity model.Identity, bookingID string) (*model.Booking, error)
}

type queryService struct {
	deps Deps
	cfg  *config.Config
}

func NewQueryService(deps Deps, cfg *config.Config) QueryService {
	return &queryService{deps: deps.withDefaults(), cfg: cfg}
}

func (s *queryService) SeatSnapshot(ctx context.Context, showID string) (*SeatSnapshot, error) {
	if showID == "" {
		return nil, apperrors.InvalidInput("Show ID cannot be empty")
	}

	return s.deps.Cache.Snapshot(ctx, showID, func(ctx context.Context) (*SeatSnapshot, error) {
		show, err := s.deps.Shows.FindShow(ctx, showID)
		if err != nil {
			return nil, translateShowError(err, showID)
		}
		return BuildSeatSnapshot(show), nil
	})
}

// BuildSeatSnapshot decodes every stored marker and groups seats by state.
func BuildSeatSnapshot(show *model.Show) *SeatSnapshot {
	snap := &SeatSnapshot{
		ShowID:        show.ID,
		StartTime:     show.StartTime,
		IsActive:      show.IsActive,
		TotalSeats:    show.TotalSeats,
		OccupiedCount: show.OccupiedCount,
		Tiers:         make([]TierSnapshot, 0, len(show.SeatTiers)),
	}
	for _, tier := range show.SeatTiers {
		ts := TierSnapshot{
			Name:        tier.Name,
			Price:       tier.Price,
			Rows:        tier.Rows,
			SeatsPerRow: tier.SeatsPerRow,
			Locked:      []string{},
			Occupied:    []string{},
		}
		for seatID := range tier.OccupiedSeats {
			switch tier.SeatState(seatID).(type) {
			case model.Locked:
				ts.Locked = append(ts.Locked, seatID)
			case model.Occupied:
				ts.Occupied = append(ts.Occupied, seatID)
			}
		}
		ts.Locked = seatmap.Sorted(ts.Locked)
		ts.Occupied = seatmap.Sorted(ts.Occupied)
		snap.Tiers = append(snap.Tiers, ts)
	}
	return snap
}

func (s *queryService) ListMyBookings(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if userID == "" {
		return nil, 0, apperrors.Unauthorized("Authentication required")
	}

	var count int64
	var bookings []*model.Booking
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		count, err = s.deps.Bookings.CountByUser(gctx, userID)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings", "user_id", userID, "error", err)
			return apperrors.Internal("Failed to count bookings", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		bookings, err = s.deps.Bookings.FindByUser(gctx, userID, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list bookings", "user_id", userID, "error", err)
			return apperrors.Internal("Failed to retrieve bookings", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}
	return bookings, count, nil
}

func (s *queryService) GetBooking(ctx context.Context, identity model.Identity, bookingID string) (*model.Booking, error) {
	if bookingID == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.deps.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, translateBookingError(err, bookingID)
	}
	// Other users' bookings are reported as missing rather than forbidden.
	if booking.UserID != identity.UserID && !identity.IsAdmin() {
		return nil, apperrors.NotFoundWithID("Booking", bookingID)
	}
	return booking, nil
}
