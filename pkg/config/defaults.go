package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "cinebook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr    = "localhost:6379"
	DefaultRedisDB      = 0
	DefaultSeatCacheTTL = 30 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultPaymentCurrency   = "inr"
	DefaultPaymentSuccessURL = "http://localhost:3000/payment/success?session_id={CHECKOUT_SESSION_ID}"
	DefaultPaymentCancelURL  = "http://localhost:3000/payment/cancel"

	DefaultHoldTTL            = 10 * time.Minute
	DefaultMaxSeatsPerBooking = 10
	DefaultCancellationCutoff = 2 * time.Hour

	DefaultExpiryPollInterval = 15 * time.Second
	DefaultExpiryBatchSize    = 50
	DefaultExpiryLease        = 1 * time.Minute

	DefaultSMTPPort = 587

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)
