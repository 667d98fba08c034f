package kafka

import "cinebook/pkg/logger"

func testLogger() *logger.Logger {
	return logger.Discard()
}
