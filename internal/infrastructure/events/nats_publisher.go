package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/domain/quality"
	"qcflow/internal/errs"
	"qcflow/internal/ports"
)

const DefaultSubjectPrefix = "qc.issues"

// conn is the subset of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher sends each event as JSON to <prefix>.<type>, for example
// qc.issues.transitioned.
type NATSPublisher struct {
	conn   conn
	prefix string
}

var _ ports.EventPublisher = (*NATSPublisher)(nil)

func ConnectNATS(ctx context.Context, url string, prefix string) (*NATSPublisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("nats url is required")
	}

	logCtx := logging.WithComponent(context.WithoutCancel(ctx), "events.nats")
	nc, err := nats.Connect(
		url,
		nats.Name("qcflow"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn(logCtx, "nats disconnected", slog.Any("err", errs.Loggable(err)))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info(logCtx, "nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errs.Wrapf(err, "connect nats %q", url)
	}

	logging.Info(logCtx, "nats connected", slog.String("url", nc.ConnectedUrl()))
	return newNATSPublisher(nc, prefix), nil
}

func newNATSPublisher(c conn, prefix string) *NATSPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{conn: c, prefix: prefix}
}

func (p *NATSPublisher) Subject(eventType quality.EventType) string {
	return p.prefix + "." + string(eventType)
}

func (p *NATSPublisher) Publish(ctx context.Context, event quality.Event) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errs.Wrap(err, "encode event")
	}
	if err := p.conn.Publish(p.Subject(event.Type), payload); err != nil {
		return errs.Wrapf(err, "publish %s", p.Subject(event.Type))
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		return errs.Wrap(err, "drain nats connection")
	}
	return nil
}
