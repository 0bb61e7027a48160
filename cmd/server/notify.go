package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-carparts-backend/internal/config"
	"github.com/tbourn/go-carparts-backend/internal/notify"
)

// newMailer returns the Resend mailer when an API key is configured and a
// logging mailer otherwise.
func newMailer(cfg config.NotifyConfig) notify.Mailer {
	if strings.TrimSpace(cfg.ResendAPIKey) == "" {
		log.Warn().Msg("RESEND_API_KEY not set; notifications are logged, not sent")
		return notify.LogMailer{}
	}
	return notify.NewResendMailer(cfg.ResendAPIKey, notify.FromAddress(cfg.ShopName, cfg.MailFrom), cfg.SendRPS)
}

// newDispatcher builds the dispatcher for cfg.Mode. The returned close
// function drains or releases whatever the dispatcher holds.
func newDispatcher(cfg config.NotifyConfig, m notify.Mailer) (notify.Dispatcher, func(), error) {
	switch cfg.Mode {
	case config.NotifyInline:
		return notify.NewInline(m), func() {}, nil

	case config.NotifyQueue, "":
		q := notify.NewQueue(m, cfg.Workers, cfg.QueueSize, notify.WithSendTimeout(cfg.SendTimeout))
		return q, q.Close, nil

	case config.NotifyAsynq:
		w := notify.NewAsynqWorker(cfg.RedisAddr, cfg.Workers, m)
		if err := w.Start(); err != nil {
			return nil, nil, err
		}
		d := notify.NewAsynqDispatcher(cfg.RedisAddr)
		return d, func() {
			if err := d.Close(); err != nil {
				log.Warn().Err(err).Msg("asynq client close")
			}
			w.Stop()
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown NOTIFY_MODE %q", cfg.Mode)
	}
}
