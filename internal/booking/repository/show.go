package repository

import (
	"context"
	"errors"
	"fmt"

	bookingErrors "cinebook/internal/booking/errors"
	"cinebook/pkg/config"
	mongodb "cinebook/pkg/db/mongo"
	"cinebook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	ShowsCollection   = "Shows"
	ScreensCollection = "Screens"
)

// SeatSwap is one compare-and-swap on a single seat of a show. The write only
// lands when the seat currently holds Expected; Expected Free means the seat
// must be absent from every tier.
type SeatSwap struct {
	ShowID    string
	TierCount int
	Tier      int
	SeatID    string
	Expected  model.SeatState
	Next      model.SeatState
}

type ShowRepository interface {
	FindShow(ctx context.Context, showID string) (*model.Show, error)
	FindScreen(ctx context.Context, screenID string) (*model.Screen, error)
	// SwapSeat reports false when the seat no longer held the expected state.
	SwapSeat(ctx context.Context, swap SeatSwap) (bool, error)
}

type mongoShowRepository struct {
	cfg     *config.Config
	shows   *mongo.Collection
	screens *mongo.Collection
}

func NewMongoShowRepository(cfg *config.Config) ShowRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoShowRepository{
		cfg:     cfg,
		shows:   db.Collection(ShowsCollection),
		screens: db.Collection(ScreensCollection),
	}
}

func (r *mongoShowRepository) FindShow(ctx context.Context, showID string) (*model.Show, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(showID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingErrors.ErrInvalidID, showID)
	}

	var show model.Show
	if err := r.shows.FindOne(ctx, bson.M{"_id": id}).Decode(&show); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingErrors.ErrShowNotFound
		}
		return nil, fmt.Errorf("failed to find show: %w", err)
	}
	return &show, nil
}

func (r *mongoShowRepository) FindScreen(ctx context.Context, screenID string) (*model.Screen, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(screenID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingErrors.ErrInvalidID, screenID)
	}

	var screen model.Screen
	if err := r.screens.FindOne(ctx, bson.M{"_id": id}).Decode(&screen); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingErrors.ErrScreenNotFound
		}
		return nil, fmt.Errorf("failed to find screen: %w", err)
	}
	return &screen, nil
}

func (r *mongoShowRepository) SwapSeat(ctx context.Context, swap SeatSwap) (bool, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(swap.ShowID)
	if err != nil {
		return false, fmt.Errorf("%w: %s", bookingErrors.ErrInvalidID, swap.ShowID)
	}
	if swap.Tier < 0 || swap.Tier >= swap.TierCount {
		return false, fmt.Errorf("tier %d out of range for show %s", swap.Tier, swap.ShowID)
	}

	filter, update := seatSwapDocuments(id, swap)
	res, err := r.shows.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update seat %s: %w", swap.SeatID, err)
	}
	return res.ModifiedCount == 1, nil
}

func seatField(tier int, seatID string) string {
	return fmt.Sprintf("seat_tiers.%d.occupied_seats.%s", tier, seatID)
}

// seatSwapDocuments builds the filter and update for a single-document
// conditional write. The occupied count moves with Free transitions only.
func seatSwapDocuments(showID primitive.ObjectID, swap SeatSwap) (bson.M, bson.M) {
	filter := bson.M{"_id": showID}

	if model.IsFree(swap.Expected) {
		filter["seat_tiers"] = bson.M{"$size": swap.TierCount}
		for i := 0; i < swap.TierCount; i++ {
			filter[seatField(i, swap.SeatID)] = bson.M{"$exists": false}
		}
	} else {
		filter[seatField(swap.Tier, swap.SeatID)] = swap.Expected.Marker()
	}

	update := bson.M{}
	field := seatField(swap.Tier, swap.SeatID)
	if model.IsFree(swap.Next) {
		update["$unset"] = bson.M{field: ""}
	} else {
		update["$set"] = bson.M{field: swap.Next.Marker()}
	}

	switch {
	case model.IsFree(swap.Expected) && !model.IsFree(swap.Next):
		update["$inc"] = bson.M{"occupied_count": 1}
	case !model.IsFree(swap.Expected) && model.IsFree(swap.Next):
		update["$inc"] = bson.M{"occupied_count": -1}
	}

	return filter, update
}
