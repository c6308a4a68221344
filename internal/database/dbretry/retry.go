// Package dbretry classifies PostgreSQL errors and waits for the database at startup.
package dbretry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
)

var (
	maxElapsedTime  = 30 * time.Second
	initialInterval = 500 * time.Millisecond
	maxInterval     = 5 * time.Second
	maxRetries      = uint64(8)
)

// IsConflict reports whether err is a serialization failure, deadlock or
// unique violation raised by a concurrent transaction.
func IsConflict(err error) bool {
	var pgerr pgdriver.Error
	if !errors.As(err, &pgerr) {
		return false
	}

	switch pgerr.Field('C') {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"23505", // unique_violation
		"55P03": // lock_not_available
		return true
	}
	return false
}

// IsConnectionError reports whether err means the database cannot be reached yet.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var pgerr pgdriver.Error
	if errors.As(err, &pgerr) {
		switch pgerr.Field('C') {
		case "08000", // connection_exception
			"08003", // connection_does_not_exist
			"08006", // connection_failure
			"08001", // sqlclient_unable_to_establish_sqlconnection
			"08004", // sqlserver_rejected_establishment_of_sqlconnection
			"53300", // too_many_connections
			"57P01", // admin_shutdown
			"57P03": // cannot_connect_now
			return true
		}
		return false
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "connection reset by peer") ||
		strings.Contains(errMsg, "broken pipe") ||
		strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no connection") ||
		strings.Contains(errMsg, "i/o timeout") ||
		strings.Contains(errMsg, "EOF")
}

// WaitForConnection pings db with exponential backoff until it answers.
// Only connection errors are retried.
func WaitForConnection(ctx context.Context, db *bun.DB, logger *zap.Logger) error {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxElapsedTime),
		backoff.WithInitialInterval(initialInterval),
		backoff.WithMaxInterval(maxInterval),
	), maxRetries)

	var lastErr error
	err := backoff.Retry(func() error {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		if !IsConnectionError(err) {
			return backoff.Permanent(err)
		}

		lastErr = err
		logger.Warn("Database not reachable yet, retrying", zap.Error(err))
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		if lastErr != nil {
			return fmt.Errorf("database unreachable after retries: %w", lastErr)
		}
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
