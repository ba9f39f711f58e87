package clients

import (
	"encoding/json"
	"fmt"
	"time"

	"airdrop-backend/internal/metrics"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NATSClient NATS client used to announce submitted drafts to downstream wizard steps
type NATSClient struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewNATSClient connects to the NATS server at url
func NewNATSClient(url string, timeout time.Duration) (*NATSClient, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := logrus.WithFields(logrus.Fields{"component": "nats", "url": url})

	conn, err := nats.Connect(url,
		nats.Name("airdrop-backend"),
		nats.Timeout(timeout),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	metrics.NATSConnectionStatus.Set(1)
	logger.Info("✅ Connected to NATS")

	return &NATSClient{conn: conn, logger: logger}, nil
}

// PublishJSON marshals v and publishes it on subject
func (c *NATSClient) PublishJSON(subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal NATS message: %w", err)
	}
	if err := c.conn.Publish(subject, data); err != nil {
		metrics.NATSMessagesPublished.WithLabelValues(subject, "failed").Inc()
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	metrics.NATSMessagesPublished.WithLabelValues(subject, "ok").Inc()
	c.logger.WithFields(logrus.Fields{"subject": subject, "bytes": len(data)}).Debug("Published NATS message")
	return nil
}

// Close drains pending messages and closes the connection
func (c *NATSClient) Close() {
	if err := c.conn.Drain(); err != nil {
		c.logger.WithError(err).Warn("NATS drain failed")
		c.conn.Close()
	}
	metrics.NATSConnectionStatus.Set(0)
}
