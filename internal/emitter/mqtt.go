// Package emitter publishes rendered overlay frames to an MQTT broker so
// other displays and recorders can follow the session.
package emitter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/hammamikhairi/foodlens/internal/logger"
	"github.com/hammamikhairi/foodlens/internal/render"
)

// ErrNotConnected is returned by Send before Connect succeeds or after
// the connection drops.
var ErrNotConnected = errors.New("emitter: mqtt not connected")

// Config holds the broker settings.
type Config struct {
	Broker         string // host:port
	ClientID       string
	TopicPrefix    string // frames go to <prefix>/<session>/overlay
	QoS            byte
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// client is the part of mqtt.Client the emitter uses.
type client interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTEmitter publishes every frame it is sent, msgpack-encoded, to the
// session's overlay topic. The last frame is retained for late joiners.
type MQTTEmitter struct {
	cfg Config
	log *logger.Logger

	client client

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

var _ render.Sink = (*MQTTEmitter)(nil)

// NewMQTTEmitter creates an emitter. Call Connect before sending.
func NewMQTTEmitter(cfg Config, log *logger.Logger) *MQTTEmitter {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "foodlens"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	return &MQTTEmitter{cfg: cfg, log: log.With("component", "mqtt")}
}

// Connect dials the broker. The client reconnects on its own after a
// connection loss.
func (e *MQTTEmitter) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.cfg.Broker))
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		e.setConnected(true)
		e.log.Info("connected to %s as %s", e.cfg.Broker, e.cfg.ClientID)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		e.setConnected(false)
		e.log.Warn("connection lost, reconnecting: %v", err)
	})

	return e.connect(ctx, mqtt.NewClient(opts))
}

func (e *MQTTEmitter) connect(ctx context.Context, c client) error {
	e.client = c
	e.log.Info("connecting to %s", e.cfg.Broker)

	token := c.Connect()
	if err := wait(ctx, token, e.cfg.ConnectTimeout); err != nil {
		return fmt.Errorf("emitter: connecting to %s: %w", e.cfg.Broker, err)
	}
	e.setConnected(true)
	return nil
}

// Topic returns the overlay topic for a session.
func (e *MQTTEmitter) Topic(sessionID string) string {
	return fmt.Sprintf("%s/%s/overlay", e.cfg.TopicPrefix, sessionID)
}

// Send implements render.Sink.
func (e *MQTTEmitter) Send(ctx context.Context, f render.Frame) error {
	if !e.isConnected() {
		e.countError()
		return ErrNotConnected
	}

	payload, err := Encode(f)
	if err != nil {
		e.countError()
		return fmt.Errorf("emitter: encoding frame v%d: %w", f.Version, err)
	}

	topic := e.Topic(f.SessionID)
	token := e.client.Publish(topic, e.cfg.QoS, true, payload)
	if err := wait(ctx, token, e.cfg.PublishTimeout); err != nil {
		e.countError()
		return fmt.Errorf("emitter: publishing to %s: %w", topic, err)
	}

	e.mu.Lock()
	e.published++
	e.mu.Unlock()
	e.log.Debug("published v%d to %s (%d bytes)", f.Version, topic, len(payload))
	return nil
}

// Close disconnects, giving in-flight publishes a short grace period.
func (e *MQTTEmitter) Close() error {
	if e.client != nil && e.isConnected() {
		e.client.Disconnect(250)
		e.log.Info("disconnected")
	}
	e.setConnected(false)
	return nil
}

// Stats returns how many frames were published and how many failed.
func (e *MQTTEmitter) Stats() (published, errors uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.published, e.errors
}

// Encode serializes a frame as msgpack. Fields without a msgpack tag use
// their json name.
func Encode(f render.Frame) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode is the inverse of Encode.
func Decode(data []byte) (render.Frame, error) {
	var f render.Frame
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	err := dec.Decode(&f)
	return f, err
}

func wait(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return errors.New("timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *MQTTEmitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *MQTTEmitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}
