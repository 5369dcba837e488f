package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"ukweather/internal/config"
)

const publishTimeout = 5 * time.Second

// Publisher sends Met Office documents to the ingest topic. It is the
// sending side of Subscriber and is meant for one-shot tools, so it does
// not retry a failed connect.
type Publisher struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
}

func NewPublisher(cfg config.Config, logger *slog.Logger) (*Publisher, error) {
	if cfg.MQTTBroker == "" {
		return nil, errors.New("mqtt: broker is not configured (set MQTT_BROKER)")
	}
	if cfg.MQTTTopic == "" {
		return nil, errors.New("mqtt: topic is not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{cfg: cfg, logger: logger.With("component", "mqtt")}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	// distinct id so a running server subscriber is not kicked off the broker
	opts.SetClientID(cfg.MQTTClientID + "-publisher")
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		p.logger.Debug("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		p.logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p, nil
}

// Connect waits for the broker to accept the connection or ctx to end.
func (p *Publisher) Connect(ctx context.Context) error {
	if p.IsConnected() {
		return nil
	}
	token := p.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		p.client.Disconnect(0)
		return ctx.Err()
	}
}

// PublishDocument sends one document with QoS 1 and waits for the broker
// to acknowledge it.
func (p *Publisher) PublishDocument(ctx context.Context, payload []byte) error {
	if err := validatePayload(payload); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}
	if !p.IsConnected() {
		return errors.New("mqtt client not connected")
	}

	topic := p.cfg.MQTTTopic
	token := p.client.Publish(topic, 1, false, payload)

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		p.logger.Error("failed to publish document", "topic", topic, "error", err)
		return fmt.Errorf("publish document: %w", err)
	}

	p.logger.Info("published weather document", "topic", topic, "size", len(payload))
	return nil
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect closes the connection. Safe to call more than once.
func (p *Publisher) Disconnect() {
	if p.client != nil {
		p.client.Disconnect(250)
	}
	p.setConnected(false)
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
