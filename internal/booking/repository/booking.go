package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingErrors "cinebook/internal/booking/errors"
	"cinebook/pkg/config"
	mongodb "cinebook/pkg/db/mongo"
	"cinebook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	BookingsCollection = "Bookings"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindBySessionID(ctx context.Context, sessionID string) (*model.Booking, error)
	FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id string) error
	// DeleteUnpaid removes the booking only while it is still unpaid.
	DeleteUnpaid(ctx context.Context, id string) (bool, error)
	SetPaymentSession(ctx context.Context, id, sessionID, link string) error
	// MarkPaid confirms a pending unpaid booking; false means it was not.
	MarkPaid(ctx context.Context, id, paymentIntentID string, paidAt time.Time) (bool, error)
	// MarkCancelled moves a booking from expectedStatus to cancelled.
	MarkCancelled(ctx context.Context, id, expectedStatus string, at time.Time) (bool, error)
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(BookingsCollection),
	}
}

// NewBookingID returns the identifier stored as the booking's _id. It is the
// hex form of an ObjectID kept as a string so lock markers and lookups use the
// same representation.
func NewBookingID() string {
	return primitive.NewObjectID().Hex()
}

func validID(id string) error {
	if !primitive.IsValidObjectID(id) {
		return fmt.Errorf("%w: %s", bookingErrors.ErrInvalidID, id)
	}
	return nil
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if booking.ID == "" {
		booking.ID = NewBookingID()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}
	booking.CreatedAt = booking.CreatedAt.Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if err := validID(id); err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoBookingRepository) FindBySessionID(ctx context.Context, sessionID string) (*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{"payment_session_id": sessionID})
}

func (r *mongoBookingRepository) findOne(ctx context.Context, filter bson.M) (*model.Booking, error) {
	var booking model.Booking
	if err := r.collection.FindOne(ctx, filter).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingErrors.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			r.cfg.Log.Error("failed to close cursor", "error", err)
		}
	}()

	var bookings []*model.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if res.DeletedCount == 0 {
		return bookingErrors.ErrBookingNotFound
	}
	return nil
}

func (r *mongoBookingRepository) DeleteUnpaid(ctx context.Context, id string) (bool, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "is_paid": false})
	if err != nil {
		return false, fmt.Errorf("failed to delete unpaid booking: %w", err)
	}
	return res.DeletedCount == 1, nil
}

func (r *mongoBookingRepository) SetPaymentSession(ctx context.Context, id, sessionID, link string) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"payment_session_id": sessionID, "payment_link": link}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "is_paid": false}, update)
	if err != nil {
		return fmt.Errorf("failed to store payment session: %w", err)
	}
	if res.MatchedCount == 0 {
		return bookingErrors.ErrBookingNotFound
	}
	return nil
}

func (r *mongoBookingRepository) MarkPaid(ctx context.Context, id, paymentIntentID string, paidAt time.Time) (bool, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "is_paid": false, "status": model.BookingPending}
	set := bson.M{
		"is_paid": true,
		"status":  model.BookingConfirmed,
		"paid_at": paidAt.UTC().Truncate(time.Millisecond),
	}
	if paymentIntentID != "" {
		set["payment_intent_id"] = paymentIntentID
	}
	update := bson.M{"$set": set, "$unset": bson.M{"payment_link": ""}}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to mark booking paid: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *mongoBookingRepository) MarkCancelled(ctx context.Context, id, expectedStatus string, at time.Time) (bool, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": expectedStatus}
	if expectedStatus == model.BookingPending {
		filter["is_paid"] = false
	}
	update := bson.M{
		"$set":   bson.M{"status": model.BookingCancelled, "cancelled_at": at.UTC().Truncate(time.Millisecond)},
		"$unset": bson.M{"payment_link": ""},
	}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to cancel booking: %w", err)
	}
	return res.ModifiedCount == 1, nil
}
