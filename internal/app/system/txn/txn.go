// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server codes returned when a deployment cannot run multi-document
// transactions (standalone servers, some managed offerings).
var notSupportedCodes = map[int32]bool{
	20:  true, // IllegalOperation
	51:  true,
	263: true, // OperationNotSupportedInTransaction
}

var notSupportedHints = []string{"transaction", "replica set", "session", "not supported", "illegal operation"}

// IsNotSupported reports whether err means transactions are unavailable.
// Unknown errors match when their text carries at least two hints.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && notSupportedCodes[ce.Code] {
		return true
	}
	msg := strings.ToLower(err.Error())
	hits := 0
	for _, h := range notSupportedHints {
		if strings.Contains(msg, h) {
			hits++
		}
	}
	return hits >= 2
}

// Run executes fn in a transaction. When the deployment does not support
// transactions fn runs again without one; the first attempt has not
// committed anything in that case.
func Run(ctx context.Context, client *mongo.Client, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		if log != nil {
			log.Warn("transactions unavailable, running sequentially", zap.Error(err))
		}
		return fn(ctx)
	}
	return err
}
