package tmdb

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerConfig configures the circuit breaker around TMDB calls.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "tmdb",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerClient fails fast with gobreaker.ErrOpenState while TMDB keeps failing.
type BreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[any]
}

func NewBreakerClient(client *Client, cfg BreakerConfig, logger zerolog.Logger) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
		// a missing movie or a cancelled caller says nothing about TMDB health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
	}
	return &BreakerClient{
		client: client,
		cb:     gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (b *BreakerClient) CandidatePage(ctx context.Context, q CandidateQuery, page int) ([]Movie, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.client.CandidatePage(ctx, q, page)
	})
	if err != nil {
		return nil, err
	}
	return out.([]Movie), nil
}

func (b *BreakerClient) ReleaseDates(ctx context.Context, movieID int64) ([]ReleaseDate, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.client.ReleaseDates(ctx, movieID)
	})
	if err != nil {
		return nil, err
	}
	return out.([]ReleaseDate), nil
}

// State reports the breaker state for health output.
func (b *BreakerClient) State() string {
	return b.cb.State().String()
}
