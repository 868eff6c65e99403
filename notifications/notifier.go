// Package notifications fans SOS alerts out to staff over the configured sinks.
package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"SmartHealth/config"
)

// SOSEvent is the payload published for a new alert.
type SOSEvent struct {
	AlertID         uint      `json:"alert_id"`
	PatientID       uint      `json:"patient_id"`
	PatientUniqueID string    `json:"patient_unique_id"`
	PatientName     string    `json:"patient_name"`
	Message         string    `json:"message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	Recipients      []string  `json:"-"`
}

type Notifier interface {
	NotifySOS(ctx context.Context, event SOSEvent) error
}

// Multi delivers to every notifier even when some fail.
type Multi []Notifier

func (m Multi) NotifySOS(ctx context.Context, event SOSEvent) error {
	var failures []string
	for _, n := range m {
		if err := n.NotifySOS(ctx, event); err != nil {
			failures = append(failures, err.Error())
		}
	}
	if len(failures) > 0 {
		return errors.Errorf("%d of %d notifiers failed: %s", len(failures), len(m), strings.Join(failures, "; "))
	}
	return nil
}

// Noop is used when no alert sink is configured.
type Noop struct{}

func (Noop) NotifySOS(context.Context, SOSEvent) error { return nil }

// New builds the notifier for the configured sinks. The returned close
// function flushes and releases sink connections.
func New(ctx context.Context, cfg *config.AppConfig) (Notifier, func(), error) {
	var (
		sinks   Multi
		closers []func() error
	)
	for _, sink := range cfg.AlertSinks {
		switch sink {
		case config.SinkMail:
			sinks = append(sinks, NewMailNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom))
		case config.SinkKafka:
			k := NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
			sinks = append(sinks, k)
			closers = append(closers, k.Close)
		case config.SinkSQS:
			q, err := NewSQSNotifier(ctx, cfg.SQSRegion, cfg.SQSQueueURL)
			if err != nil {
				return nil, nil, err
			}
			sinks = append(sinks, q)
		default:
			return nil, nil, errors.Errorf("unknown alert sink %q", sink)
		}
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("failed to close alert sink")
			}
		}
	}
	if len(sinks) == 0 {
		return Noop{}, closeAll, nil
	}
	log.Info().Strs("sinks", cfg.AlertSinks).Msg("sos notifiers configured")
	return sinks, closeAll, nil
}
