// Package events publishes thread activity to NATS for downstream
// consumers. Publishing is optional and best-effort.
package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/banterlabs/banter/internal/models"
)

const (
	subjectTurns   = "banter.turns"
	subjectPayouts = "banter.payouts"
)

// TurnEvent is published for every stored message.
type TurnEvent struct {
	ThreadID  string    `json:"threadId"`
	MessageID string    `json:"messageId"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// PayoutEvent is published when a payout request is recorded.
type PayoutEvent struct {
	PayoutID string  `json:"payoutId"`
	UserID   string  `json:"userId"`
	Amount   float64 `json:"amount"`
	Status   string  `json:"status"`
}

// Publisher publishes events to NATS. A nil Publisher is safe to use and
// publishes nothing, so callers don't branch on whether NATS is configured.
type Publisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// Connect dials NATS and returns a Publisher.
func Connect(natsURL string, logger zerolog.Logger) (*Publisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, logger: logger}, nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}

// PublishTurn emits a TurnEvent for a stored message.
func (p *Publisher) PublishTurn(msg *models.Message) {
	if p == nil {
		return
	}
	p.publish(subjectTurns, TurnEvent{
		ThreadID:  msg.ThreadID,
		MessageID: msg.ID,
		Role:      msg.Role,
		Timestamp: msg.Timestamp,
	})
}

// PublishPayout emits a PayoutEvent for a recorded payout.
func (p *Publisher) PublishPayout(payout *models.Payout) {
	if p == nil {
		return
	}
	p.publish(subjectPayouts, PayoutEvent{
		PayoutID: payout.ID,
		UserID:   payout.UserID,
		Amount:   payout.Amount,
		Status:   payout.Status,
	})
}

func (p *Publisher) publish(subject string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Debug().Err(err).Str("subject", subject).Msg("event publish failed")
	}
}
