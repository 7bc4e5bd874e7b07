package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrAuthRequired     = errors.New("storage authentication required")
	ErrPermissionDenied = errors.New("storage permission denied")

	// ErrTransient marks a failure worth retrying. Object store
	// implementations (and test stubs) wrap retryable errors with it;
	// network and timeout errors from the driver count as well.
	ErrTransient = errors.New("transient storage error")
)

// RetryError is the terminal failure returned once the retry budget is spent.
type RetryError struct {
	Path    string
	Retries int
	Err     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("upload %s failed after %d retries: %v", e.Path, e.Retries, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// SessionProvider establishes an anonymous session with the object store.
type SessionProvider interface {
	SignInAnonymously(ctx context.Context) (string, error)
}

// Uploader wraps an ObjectStore with the behavior callers rely on: a session
// is established before the first upload, transient failures are retried with
// linearly increasing backoff, and blob deletion is best-effort.
type Uploader struct {
	store    ObjectStore
	sessions SessionProvider
	log      *slog.Logger

	maxRetries int
	backoff    time.Duration
	sleep      func(time.Duration)

	mu      sync.Mutex
	session string
}

func NewUploader(store ObjectStore, sessions SessionProvider, log *slog.Logger) *Uploader {
	return &Uploader{
		store:      store,
		sessions:   sessions,
		log:        log,
		maxRetries: 3,
		backoff:    time.Second,
		sleep:      time.Sleep,
	}
}

func (u *Uploader) ensureSession(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.session != "" {
		return nil
	}
	token, err := u.sessions.SignInAnonymously(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthRequired, err)
	}
	u.session = token
	u.log.Info("anonymous storage session established")
	return nil
}

// Upload stores data at path. Transient failures are retried up to three
// times, sleeping 1s, 2s then 3s between attempts; permission and
// authentication failures are surfaced immediately.
func (u *Uploader) Upload(ctx context.Context, path, contentType string, data []byte) (Object, error) {
	if err := u.ensureSession(ctx); err != nil {
		return Object{}, err
	}

	var lastErr error
	for attempt := 0; attempt <= u.maxRetries; attempt++ {
		if attempt > 0 {
			u.sleep(time.Duration(attempt) * u.backoff)
			u.log.Warn("retrying upload",
				slog.String("path", path),
				slog.Int("attempt", attempt),
			)
		}

		err := u.store.Put(ctx, path, contentType, bytes.NewReader(data))
		if err == nil {
			return Object{
				ID:         uuid.NewString(),
				URL:        u.store.URL(path),
				Path:       path,
				UploadedAt: time.Now().UTC(),
				SortOrder:  0,
			}, nil
		}
		if !retryable(err) {
			return Object{}, classify(err)
		}
		lastErr = err
	}

	return Object{}, &RetryError{Path: path, Retries: u.maxRetries, Err: lastErr}
}

// Remove deletes a blob. Failures are logged and swallowed: the caller's
// record-level change must proceed even when storage hygiene fails.
func (u *Uploader) Remove(ctx context.Context, path string) {
	if err := u.ensureSession(ctx); err != nil {
		u.log.Warn("blob delete skipped: no session", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	if err := u.store.Delete(ctx, path); err != nil {
		u.log.Warn("blob delete failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func retryable(err error) bool {
	if errors.Is(err, ErrTransient) {
		return true
	}
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err)
}

func classify(err error) error {
	if errors.Is(err, ErrAuthRequired) || errors.Is(err, ErrPermissionDenied) {
		return err
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case 13:
			return fmt.Errorf("%w: %s", ErrPermissionDenied, cmdErr.Message)
		case 18:
			return fmt.Errorf("%w: %s", ErrAuthRequired, cmdErr.Message)
		}
	}
	return fmt.Errorf("storage error: %v", err)
}
