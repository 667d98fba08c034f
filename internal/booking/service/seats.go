package service

import (
	"context"
	"errors"
	"fmt"

	bookingErrors "cinebook/internal/booking/errors"
	"cinebook/internal/booking/repository"
	"cinebook/internal/booking/seatmap"
	"cinebook/pkg/logger"
	"cinebook/pkg/model"
)

// seatLedger applies seat state transitions one conditional write at a time.
type seatLedger struct {
	shows repository.ShowRepository
	log   *logger.Logger
}

type lockedSeat struct {
	seatID string
	tier   int
}

// lockAll moves every seat from Free to Locked{bookingID}, in lock order. On
// the first seat that is no longer free it undoes the locks it placed and
// returns that seat as the conflict.
func (l seatLedger) lockAll(ctx context.Context, show *model.Show, bookingID string, seats []model.BookedSeat) (string, error) {
	bySeat := make(map[string]model.BookedSeat, len(seats))
	ids := make([]string, 0, len(seats))
	for _, s := range seats {
		bySeat[s.SeatID] = s
		ids = append(ids, s.SeatID)
	}

	lock := model.Locked{BookingID: bookingID}
	var placed []lockedSeat
	for _, seatID := range seatmap.Sorted(ids) {
		tier, err := seatmap.LockTier(show, bySeat[seatID])
		if err != nil {
			l.rollback(ctx, show, lock, placed)
			return "", err
		}

		ok, err := l.shows.SwapSeat(ctx, seatSwap(show, tier, seatID, model.Free{}, lock))
		if err != nil {
			l.rollback(ctx, show, lock, placed)
			return "", err
		}
		if !ok {
			l.rollback(ctx, show, lock, placed)
			return seatID, nil
		}
		placed = append(placed, lockedSeat{seatID: seatID, tier: tier})
	}
	return "", nil
}

func (l seatLedger) rollback(ctx context.Context, show *model.Show, lock model.Locked, placed []lockedSeat) {
	ctx = context.WithoutCancel(ctx)
	for _, p := range placed {
		ok, err := l.shows.SwapSeat(ctx, seatSwap(show, p.tier, p.seatID, lock, model.Free{}))
		if err != nil || !ok {
			// The expiry task sweeps whatever is left.
			l.log.Error("Failed to roll back seat lock",
				"show_id", show.ID,
				"booking_id", lock.BookingID,
				"seat", p.seatID,
				"error", err,
			)
		}
	}
}

// sweep frees every listed seat whose marker in any tier equals owner, and
// returns the seats actually released. Markers owned by anyone else are left
// alone because each write is conditional on owner's marker.
func (l seatLedger) sweep(ctx context.Context, showID string, seatIDs []string, owner model.SeatState) ([]string, error) {
	return l.transition(ctx, showID, seatIDs, owner, model.Free{})
}

// transition swaps every listed seat holding from into to, wherever it sits.
func (l seatLedger) transition(ctx context.Context, showID string, seatIDs []string, from, to model.SeatState) ([]string, error) {
	show, err := l.shows.FindShow(ctx, showID)
	if err != nil {
		if errors.Is(err, bookingErrors.ErrShowNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load show %s: %w", showID, err)
	}

	marker := from.Marker()
	var moved []string
	var errs []error
	for _, seatID := range seatIDs {
		for i, tier := range show.SeatTiers {
			if current, ok := tier.OccupiedSeats[seatID]; !ok || current != marker {
				continue
			}
			ok, err := l.shows.SwapSeat(ctx, seatSwap(show, i, seatID, from, to))
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if ok {
				moved = append(moved, seatID)
			}
		}
	}
	return moved, errors.Join(errs...)
}

func seatSwap(show *model.Show, tier int, seatID string, from, to model.SeatState) repository.SeatSwap {
	return repository.SeatSwap{
		ShowID:    show.ID,
		TierCount: len(show.SeatTiers),
		Tier:      tier,
		SeatID:    seatID,
		Expected:  from,
		Next:      to,
	}
}
