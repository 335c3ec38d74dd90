package storage

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned without contacting the wrapped store while the
// breaker is open.
var ErrCircuitOpen = errors.New("blob store circuit breaker is open")

// BreakerStore wraps a BlobStore and stops calling it after maxFailures
// consecutive failures. Once resetTimeout has passed a single trial call is
// let through; success closes the breaker, failure opens it again.
type BreakerStore struct {
	next BlobStore
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerStore(next BlobStore, maxFailures int, resetTimeout time.Duration) *BreakerStore {
	if maxFailures < 1 {
		maxFailures = 1
	}
	log := logger.New()
	return &BreakerStore{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "blob-store",
			MaxRequests: 1,
			Timeout:     resetTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(maxFailures)
			},
			// Taken keys and foreign URLs are the caller's problem, not the
			// store's.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrBlobExists) || errors.Is(err, ErrForeignURL)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("blob store breaker changed state", logger.Data{"breaker": name, "from": from.String(), "to": to.String()})
			},
		}),
	}
}

func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	url, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Put(ctx, key, r, contentType)
	})
	if err != nil {
		return "", openOr(err)
	}
	return url.(string), nil
}

func (b *BreakerStore) Delete(ctx context.Context, url string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Delete(ctx, url)
	})
	return openOr(err)
}

func (b *BreakerStore) Stat(ctx context.Context, url string) (*BlobInfo, error) {
	st, ok := b.next.(Statter)
	if !ok {
		return nil, errors.New("wrapped blob store cannot stat")
	}
	return st.Stat(ctx, url)
}

func openOr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}
