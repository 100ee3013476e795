package natsclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/ShortcutURL/config"
	"github.com/sifan077/ShortcutURL/internal/app/model"
	"go.uber.org/zap"
)

const (
	defaultConnectTimeout = 5 * time.Second
	clickRetention        = 30 * 24 * time.Hour
	maxPendingAsync       = 4096
)

// Connect creates a NATS connection (with JetStream available) using application config.
func Connect(cfg config.NATSConfig, log *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	if log == nil {
		log = zap.NewNop()
	}

	opts := []nats.Option{
		nats.Timeout(defaultConnectTimeout),
		nats.Name("shortcuturl"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	conn, err := nats.Connect(URL(cfg), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("nats: connect: %w", err)
	}

	js, err := conn.JetStream(
		nats.PublishAsyncMaxPending(maxPendingAsync),
		nats.PublishAsyncErrHandler(func(_ nats.JetStream, msg *nats.Msg, err error) {
			log.Warn("click event not stored", zap.String("subject", msg.Subject), zap.Error(err))
		}),
	)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("nats: init jetstream: %w", err)
	}

	return conn, js, nil
}

// StreamManager is the subset of nats.JetStreamContext used to provision streams.
type StreamManager interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
}

// ClickStreamConfig describes the stream holding click events.
func ClickStreamConfig() *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:       model.ClickStreamName,
		Subjects:   []string{model.ClickStreamSubject},
		Storage:    nats.FileStorage,
		Retention:  nats.LimitsPolicy,
		MaxAge:     clickRetention,
		MaxBytes:   model.ClickStreamMaxBytes,
		Discard:    nats.DiscardOld,
		Duplicates: 2 * time.Minute,
	}
}

// EnsureStream creates the click stream when it does not exist yet.
func EnsureStream(js StreamManager) error {
	cfg := ClickStreamConfig()
	if _, err := js.StreamInfo(cfg.Name); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("nats: stream info: %w", err)
	}
	if _, err := js.AddStream(cfg); err != nil {
		return fmt.Errorf("nats: add stream %s: %w", cfg.Name, err)
	}
	return nil
}

// URL returns the server address for cfg.
func URL(cfg config.NATSConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 4222
	}
	return fmt.Sprintf("nats://%s:%d", host, port)
}
