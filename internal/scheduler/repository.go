package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cinebook/pkg/config"
	mongodb "cinebook/pkg/db/mongo"
	"cinebook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Expiry_tasks"

// TaskRepository persists expiry timers so they survive restarts.
type TaskRepository interface {
	// Schedule inserts task; scheduling an id that already exists is a no-op.
	Schedule(ctx context.Context, task *model.ExpiryTask) error
	// ClaimDue leases up to limit due tasks, including running tasks whose
	// lease lapsed because their worker died.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*model.ExpiryTask, error)
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, id string, cause error, retryAt time.Time, final bool) error
}

type mongoTaskRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTaskRepository(cfg *config.Config) TaskRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTaskRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoTaskRepository) Schedule(ctx context.Context, task *model.ExpiryTask) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if task.Status == "" {
		task.Status = model.TaskPending
	}
	if _, err := r.collection.InsertOne(ctx, task); err != nil {
		if mongodb.IsDuplicateKey(err) {
			return nil
		}
		return fmt.Errorf("failed to schedule task %s: %w", task.ID, err)
	}
	return nil
}

func (r *mongoTaskRepository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*model.ExpiryTask, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"$or": bson.A{
		bson.M{"status": model.TaskPending, "run_at": bson.M{"$lte": now}},
		bson.M{"status": model.TaskRunning, "lease_until": bson.M{"$lt": now}},
	}}
	update := bson.M{
		"$set": bson.M{"status": model.TaskRunning, "lease_until": now.Add(lease)},
		"$inc": bson.M{"attempts": 1},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "run_at", Value: 1}}).
		SetReturnDocument(options.After)

	var claimed []*model.ExpiryTask
	for len(claimed) < limit {
		var task model.ExpiryTask
		err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&task)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			return claimed, fmt.Errorf("failed to claim expiry task: %w", err)
		}
		claimed = append(claimed, &task)
	}
	return claimed, nil
}

func (r *mongoTaskRepository) Complete(ctx context.Context, id string) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set":   bson.M{"status": model.TaskDone},
		"$unset": bson.M{"lease_until": ""},
	}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("failed to complete task %s: %w", id, err)
	}
	return nil
}

func (r *mongoTaskRepository) Fail(ctx context.Context, id string, cause error, retryAt time.Time, final bool) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	status := model.TaskPending
	if final {
		status = model.TaskFailed
	}
	update := bson.M{
		"$set":   bson.M{"status": status, "run_at": retryAt, "last_error": cause.Error()},
		"$unset": bson.M{"lease_until": ""},
	}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "status": model.TaskRunning}, update); err != nil {
		return fmt.Errorf("failed to record task failure %s: %w", id, err)
	}
	return nil
}
