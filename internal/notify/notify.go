// Package notify delivers the email side effects of inventory changes.
//
// A Notification is built by the service layer (NewPartAdded,
// NewBackInStock) and handed to a Dispatcher. Dispatchers differ only in
// when the Mailer runs:
//
//   - Inline: in the caller's goroutine, the caller waits for the send.
//   - Queue: on a bounded in-process worker pool, the caller never waits.
//   - AsynqDispatcher: on a Redis-backed asynq queue consumed by AsynqWorker.
//
// Failed or dropped notifications are logged and counted in
// notifications_total{kind,outcome}. They are never retried.
package notify

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-carparts-backend/internal/domain"
	"github.com/tbourn/go-carparts-backend/internal/errs"
)

// Notification kinds.
const (
	KindPartAdded   = "part_added"
	KindBackInStock = "back_in_stock"
)

// Outcome label values of notifications_total.
const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"
)

// DefaultShopName is used in message bodies when no shop name is configured.
const DefaultShopName = "MMJAuto"

// Notification is one email addressed to every recipient at once.
type Notification struct {
	Kind       string   `json:"kind"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
}

// Mailer sends a plain-text email to a list of recipients.
type Mailer interface {
	Send(ctx context.Context, recipients []string, subject, body string) error
}

// Dispatcher hands a notification to a delivery mechanism. A returned error
// means the notification was not delivered and will not be.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

var notificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Email notifications by kind and outcome.",
	},
	[]string{"kind", "outcome"},
)

func init() {
	prometheus.MustRegister(notificationsTotal)
}

// NewPartAdded announces a newly created part to recipients.
func NewPartAdded(shop string, part *domain.Part, recipients []string) Notification {
	return Notification{
		Kind:       KindPartAdded,
		Recipients: recipients,
		Subject:    "🆕 New Car Part Added!",
		Body:       fmt.Sprintf("A new car part \"%s\" has just been added to %s. Check it out!", part.Name, shopName(shop)),
	}
}

// NewBackInStock tells wishlist owners that part is available again.
func NewBackInStock(shop string, part *domain.Part, recipients []string) Notification {
	return Notification{
		Kind:       KindBackInStock,
		Recipients: recipients,
		Subject:    "✅ Car Part Back in Stock!",
		Body:       fmt.Sprintf("Good news! \"%s\" is now back in stock at %s. Check your wishlist!", part.Name, shopName(shop)),
	}
}

func shopName(s string) string {
	if s == "" {
		return DefaultShopName
	}
	return s
}

// deliver runs the mailer for n and records the outcome. This is the single
// failure log for notifications regardless of dispatcher.
func deliver(ctx context.Context, m Mailer, n Notification) error {
	if err := m.Send(ctx, n.Recipients, n.Subject, n.Body); err != nil {
		notificationsTotal.WithLabelValues(n.Kind, OutcomeFailed).Inc()
		log.Warn().
			Err(err).
			Str("kind", n.Kind).
			Int("recipients", len(n.Recipients)).
			Msg("notification send failed")
		return errs.Notification(n.Kind, len(n.Recipients), err)
	}
	notificationsTotal.WithLabelValues(n.Kind, OutcomeSent).Inc()
	log.Info().
		Str("kind", n.Kind).
		Int("recipients", len(n.Recipients)).
		Msg("notification sent")
	return nil
}

// drop records a notification that never reached the mailer.
func drop(n Notification, cause error) error {
	notificationsTotal.WithLabelValues(n.Kind, OutcomeDropped).Inc()
	log.Warn().
		Err(cause).
		Str("kind", n.Kind).
		Int("recipients", len(n.Recipients)).
		Msg("notification dropped")
	return errs.Notification(n.Kind, len(n.Recipients), cause)
}

// Inline sends in the caller's goroutine.
type Inline struct {
	Mailer Mailer
}

// NewInline returns a Dispatcher that awaits m for every notification.
func NewInline(m Mailer) *Inline { return &Inline{Mailer: m} }

// Dispatch sends n and returns the send error, if any.
func (d *Inline) Dispatch(ctx context.Context, n Notification) error {
	return deliver(ctx, d.Mailer, n)
}
