package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Recipient is the addressee of one email.
type Recipient struct {
	UserID string
	Email  string
	Name   string
}

type Reason string

const (
	ReasonDiscovered Reason = "discovered"
	ReasonChanged    Reason = "changed"
	ReasonReleaseDay Reason = "release_day"
)

// Item is one movie worth telling a recipient about. Nil dates are not part
// of this notification.
type Item struct {
	Recipient          Recipient
	MovieID            int64
	Title              string
	Reason             Reason
	Theatrical         *time.Time
	Streaming          *time.Time
	PreviousTheatrical *time.Time
	PreviousStreaming  *time.Time
}

// Mailer delivers one email per call.
type Mailer interface {
	SendSingle(ctx context.Context, to Recipient, item Item) error
	SendBatch(ctx context.Context, to Recipient, items []Item) error
}

// LogMailer only logs what would have been sent.
type LogMailer struct {
	logger zerolog.Logger
}

func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendSingle(_ context.Context, to Recipient, item Item) error {
	subject, _ := composeSingle(item)
	m.logger.Info().
		Str("user_id", to.UserID).
		Str("to", to.Email).
		Int64("movie_id", item.MovieID).
		Str("subject", subject).
		Msg("dry run: single notification")
	return nil
}

func (m *LogMailer) SendBatch(_ context.Context, to Recipient, items []Item) error {
	subject, _ := composeBatch(items)
	m.logger.Info().
		Str("user_id", to.UserID).
		Str("to", to.Email).
		Int("movies", len(items)).
		Str("subject", subject).
		Msg("dry run: batch notification")
	return nil
}
