package notify

import (
	"context"

	"github.com/rs/zerolog"

	"releasewatch/internal/metrics"
)

// Failure is a recipient whose email could not be sent.
type Failure struct {
	Recipient Recipient
	Items     []Item
	Err       error
}

// Report lists what Dispatch delivered and what it could not.
type Report struct {
	Sent   []Item
	Emails int
	Failed []Failure
}

// Dispatcher groups items per recipient and sends one email each.
type Dispatcher struct {
	mailer  Mailer
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewDispatcher(mailer Mailer, m *metrics.Metrics, logger zerolog.Logger) *Dispatcher {
	if m == nil {
		m = metrics.New(nil)
	}
	return &Dispatcher{mailer: mailer, metrics: m, logger: logger}
}

// Dispatch sends a single-movie email to recipients with one movie and a
// batch email otherwise. A failed recipient is reported and the rest still
// get their mail.
func (d *Dispatcher) Dispatch(ctx context.Context, items []Item) Report {
	var report Report
	for _, group := range groupByRecipient(items) {
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, Failure{Recipient: group.recipient, Items: group.items, Err: err})
			continue
		}

		var err error
		if len(group.items) == 1 {
			err = d.mailer.SendSingle(ctx, group.recipient, group.items[0])
		} else {
			err = d.mailer.SendBatch(ctx, group.recipient, group.items)
		}
		if err != nil {
			d.metrics.MailFailures.Inc()
			d.logger.Error().Err(err).
				Str("user_id", group.recipient.UserID).
				Int("movies", len(group.items)).
				Msg("failed to send notification email")
			report.Failed = append(report.Failed, Failure{Recipient: group.recipient, Items: group.items, Err: err})
			continue
		}
		report.Emails++
		report.Sent = append(report.Sent, group.items...)
	}
	return report
}

type recipientGroup struct {
	recipient Recipient
	items     []Item
}

// groupByRecipient keeps first-seen order of recipients and movies and
// merges items for the same movie into one.
func groupByRecipient(items []Item) []*recipientGroup {
	var groups []*recipientGroup
	byUser := make(map[string]*recipientGroup)
	index := make(map[Pair]int)

	for _, item := range items {
		key := item.Recipient.UserID
		if key == "" {
			key = item.Recipient.Email
		}
		g, ok := byUser[key]
		if !ok {
			g = &recipientGroup{recipient: item.Recipient}
			byUser[key] = g
			groups = append(groups, g)
		}

		p := Pair{UserID: key, MovieID: item.MovieID}
		if i, ok := index[p]; ok {
			g.items[i] = merge(g.items[i], item)
			continue
		}
		index[p] = len(g.items)
		g.items = append(g.items, item)
	}
	return groups
}

func merge(into, from Item) Item {
	if into.Theatrical == nil {
		into.Theatrical = from.Theatrical
		into.PreviousTheatrical = from.PreviousTheatrical
	}
	if into.Streaming == nil {
		into.Streaming = from.Streaming
		into.PreviousStreaming = from.PreviousStreaming
	}
	if into.Title == "" {
		into.Title = from.Title
	}
	return into
}
