// Package notify publishes the run summary to a NATS subject so downstream
// capacity tooling can react to each analysis run.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gftdcojp/streamlens/internal/analyze"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// RunEvent is the payload published after each run: the totals, not the
// full ranked table.
type RunEvent struct {
	GeneratedAt time.Time        `json:"generated_at"`
	ClusterURL  string           `json:"cluster_url"`
	Summary     analyze.Summary  `json:"summary"`
	Stats       analyze.RunStats `json:"stats"`
}

// Publisher publishes run events over an established NATS connection.
type Publisher struct {
	nc      *nats.Conn
	subject string
	logger  *zap.Logger
}

// NewPublisher wraps a connection; the caller keeps ownership of nc.
func NewPublisher(nc *nats.Conn, subject string, logger *zap.Logger) *Publisher {
	return &Publisher{nc: nc, subject: subject, logger: logger}
}

// Publish sends the run event and flushes so the message is on the wire
// before the process exits.
func (p *Publisher) Publish(event RunEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding run event: %w", err)
	}

	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publishing run event: %w", err)
	}
	if err := p.nc.Flush(); err != nil {
		return fmt.Errorf("flushing run event: %w", err)
	}

	p.logger.Info("run summary published", zap.String("subject", p.subject))
	return nil
}
