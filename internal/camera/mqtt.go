// internal/camera/mqtt.go
package camera

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Frames arrive over MQTT on <streamID>/frame as JSON with base64 pixel data,
// the same shape the ESP32 nodes use for audio chunks:
//
//	{"ts_ns": 1700000000123456789, "width": 640, "height": 480, "pixels": "<base64 BGR>"}

// MQTTSource opens frame sessions over a shared paho client.
type MQTTSource struct {
	client mqtt.Client
	logger *slog.Logger
}

// NewMQTTSource wraps an already connected client.
func NewMQTTSource(client mqtt.Client, logger *slog.Logger) *MQTTSource {
	return &MQTTSource{client: client, logger: logger}
}

// Open subscribes to the stream's frame topic and returns a session. The
// caller owns the session and must close it.
func (s *MQTTSource) Open(streamID string) (Session, error) {
	sess := &mqttSession{
		client: s.client,
		topic:  streamID + "/frame",
		frames: make(chan Frame, 1),
		logger: s.logger,
	}
	token := s.client.Subscribe(sess.topic, 1, sess.handle)
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("opening stream %s: %w", streamID, token.Error())
	}
	return sess, nil
}

type mqttSession struct {
	client mqtt.Client
	topic  string
	frames chan Frame
	logger *slog.Logger
}

func (s *mqttSession) Fetch(timeout time.Duration) (Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case frame := <-s.frames:
		return frame, nil
	case <-timer.C:
		return Frame{}, ErrFetchTimeout
	}
}

func (s *mqttSession) Close() error {
	token := s.client.Unsubscribe(s.topic)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("closing stream %s: %w", s.topic, token.Error())
	}
	return nil
}

func (s *mqttSession) handle(_ mqtt.Client, msg mqtt.Message) {
	frame, err := DecodeFramePayload(msg.Payload())
	if err != nil {
		s.logger.Warn("dropping bad frame payload", "topic", msg.Topic(), "error", err)
		return
	}
	// Keep only the newest frame; a capture wants "now", not a backlog.
	select {
	case s.frames <- frame:
	default:
		select {
		case <-s.frames:
		default:
		}
		s.frames <- frame
	}
}

type framePayload struct {
	TimestampNS int64  `json:"ts_ns"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Pixels      string `json:"pixels"`
}

// DecodeFramePayload parses a frame message and validates the pixel buffer
// length against the stated dimensions.
func DecodeFramePayload(payload []byte) (Frame, error) {
	var body framePayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return Frame{}, fmt.Errorf("parsing frame payload: %w", err)
	}
	if body.Width <= 0 || body.Height <= 0 {
		return Frame{}, fmt.Errorf("bad frame dimensions %dx%d", body.Width, body.Height)
	}
	pixels, err := base64.StdEncoding.DecodeString(body.Pixels)
	if err != nil {
		return Frame{}, fmt.Errorf("decoding frame pixels: %w", err)
	}
	if want := body.Width * body.Height * 3; len(pixels) != want {
		return Frame{}, fmt.Errorf("frame pixel buffer is %d bytes, want %d", len(pixels), want)
	}
	return Frame{
		TimestampNS: body.TimestampNS,
		Width:       body.Width,
		Height:      body.Height,
		Pixels:      pixels,
	}, nil
}
