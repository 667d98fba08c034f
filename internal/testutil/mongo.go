package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"cinebook/pkg/client"
	"cinebook/pkg/config"
	"cinebook/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	EnvTestMongoURI   = "TEST_MONGO_URI"
	ConnectionTimeout = 10 * time.Second
	OperationTimeout  = 5 * time.Second
)

// MongoConfig connects to TEST_MONGO_URI and returns a Config bound to a
// fresh database that is dropped when the test ends. The test is skipped when
// the variable is unset.
func MongoConfig(t *testing.T) *config.Config {
	t.Helper()

	uri := os.Getenv(EnvTestMongoURI)
	if uri == "" {
		t.Skipf("%s not set, skipping MongoDB test", EnvTestMongoURI)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := mc.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	dbName := "cinebook_test_" + primitive.NewObjectID().Hex()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), OperationTimeout)
		defer cancel()
		if err := mc.Database(dbName).Drop(ctx); err != nil {
			t.Logf("warning: failed to drop %s: %v", dbName, err)
		}
		if err := mc.Disconnect(ctx); err != nil {
			t.Logf("warning: failed to disconnect from MongoDB: %v", err)
		}
	})

	return &config.Config{
		MongoDatabaseName: dbName,
		ReadTimeout:       OperationTimeout,
		WriteTimeout:      OperationTimeout,
		Log:               logger.Discard(),
		Client:            &client.Client{Mongo: mc},
	}
}

// Collection returns a collection of the test database for direct setup.
func Collection(cfg *config.Config, name string) *mongo.Collection {
	return cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(name)
}
