package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrAuthRequired     = errors.New("authentication required")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("document not found")
	ErrUnavailable      = errors.New("backend unavailable")
)

// Mongo server error codes we care about. Anything else is wrapped with a
// generic message rather than leaking raw backend detail to callers.
const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrAuthRequired) {
		return err
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case codeUnauthorized:
			return fmt.Errorf("%w: %s", ErrPermissionDenied, cmdErr.Message)
		case codeAuthenticationFailed:
			return fmt.Errorf("%w: %s", ErrAuthRequired, cmdErr.Message)
		}
	}

	return fmt.Errorf("backend error: %v", err)
}
