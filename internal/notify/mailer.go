package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// resendMaxRecipients is the provider's per-request limit on "to" addresses.
const resendMaxRecipients = 50

// ResendMailer sends mail through the Resend API. Provider requests share
// one token bucket, so concurrent queue workers stay under the per-key
// request rate together.
type ResendMailer struct {
	client  *resend.Client
	from    string
	limiter *rate.Limiter
}

// NewResendMailer creates a mailer authenticated with apiKey. from is the
// sender identity, e.g. "MMJAuto <no-reply@mmjauto.com>". rps caps provider
// requests per second; rps <= 0 leaves them unpaced.
func NewResendMailer(apiKey, from string, rps float64) *ResendMailer {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &ResendMailer{
		client:  resend.NewClient(apiKey),
		from:    from,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Send delivers one email to all recipients, split into provider-sized
// batches paced by the send rate. The first failing batch aborts the send.
func (m *ResendMailer) Send(ctx context.Context, recipients []string, subject, body string) error {
	for start := 0; start < len(recipients); start += resendMaxRecipients {
		end := start + resendMaxRecipients
		if end > len(recipients) {
			end = len(recipients)
		}
		if err := m.limiter.Wait(ctx); err != nil {
			return errors.Wrapf(err, "email batch %d-%d not sent", start, end)
		}
		params := &resend.SendEmailRequest{
			From:    m.from,
			To:      recipients[start:end],
			Subject: subject,
			Text:    body,
		}
		if _, err := m.client.Emails.SendWithContext(ctx, params); err != nil {
			return errors.Wrapf(err, "failed to send email batch %d-%d", start, end)
		}
	}
	return nil
}

// LogMailer writes emails to the log instead of sending them. It is used
// when no provider key is configured.
type LogMailer struct{}

// Send logs the email and always succeeds.
func (LogMailer) Send(_ context.Context, recipients []string, subject, body string) error {
	log.Info().
		Int("recipients", len(recipients)).
		Str("subject", subject).
		Str("body", body).
		Msg("email (log mailer)")
	return nil
}

// FromAddress formats a sender identity for the given shop name and address.
func FromAddress(shop, addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = "onboarding@resend.dev"
	}
	return fmt.Sprintf("%s <%s>", shopName(shop), addr)
}
