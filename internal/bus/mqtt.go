// internal/bus/mqtt.go
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DialConfig holds MQTT connection settings.
type DialConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Dial connects a paho client with auto-reconnect. The returned client is
// shared between the signal bus and the frame source.
func Dial(cfg DialConfig) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to broker %s: %w", cfg.Broker, token.Error())
	}
	return client, nil
}

// MQTT is a Bus over a paho client. Subscription callbacks run on paho's
// delivery goroutine and are bridged into a channel so the scheduling loop
// sees a plain blocking receive.
type MQTT struct {
	client   mqtt.Client
	messages chan Message
	logger   *slog.Logger
}

// NewMQTT wraps an already connected client.
func NewMQTT(client mqtt.Client, logger *slog.Logger) *MQTT {
	return &MQTT{
		client:   client,
		messages: make(chan Message, 100),
		logger:   logger,
	}
}

// Subscribe registers interest in a dotted signal name. The name is used
// verbatim as the MQTT topic.
func (b *MQTT) Subscribe(dottedName string) error {
	token := b.client.Subscribe(dottedName, 1, b.handle)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribing to %s: %w", dottedName, token.Error())
	}
	b.logger.Info("subscribed to signal", "name", dottedName)
	return nil
}

// Next blocks until the next signal update arrives or ctx is done.
func (b *MQTT) Next(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case msg := <-b.messages:
		return msg, nil
	}
}

// Close disconnects the underlying client.
func (b *MQTT) Close() error {
	b.client.Disconnect(250)
	return nil
}

func (b *MQTT) handle(_ mqtt.Client, msg mqtt.Message) {
	v, err := ParseValue(msg.Payload())
	if err != nil {
		b.logger.Warn("dropping non-numeric signal payload", "name", msg.Topic(), "error", err)
		return
	}
	select {
	case b.messages <- Message{Name: msg.Topic(), Value: v}:
	default:
		b.logger.Warn("signal buffer full, dropping message", "name", msg.Topic())
	}
}

// ParseValue decodes a signal payload: either a bare number ("27.5") or a
// JSON object with a value field ({"value": 27.5}).
func ParseValue(payload []byte) (float64, error) {
	s := strings.TrimSpace(string(payload))
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	var body struct {
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return 0, fmt.Errorf("parsing payload %q: %w", s, err)
	}
	if body.Value == nil {
		return 0, fmt.Errorf("payload %q has no value field", s)
	}
	return *body.Value, nil
}
