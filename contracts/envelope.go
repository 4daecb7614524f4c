package contracts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ContentType is the AMQP content type of an encoded envelope
const ContentType = "application/vnd.diameter+json"

// Envelope wraps a message for broker transport
type Envelope struct {
	ID         string          `json:"id"`
	Timestamp  string          `json:"timestamp"`
	OriginHost string          `json:"originHost,omitempty"`
	Headers    map[string]any  `json:"headers,omitempty"`
	Body       json.RawMessage `json:"body"`
}

// NewEnvelope wraps msg, stamping a fresh envelope id
func NewEnvelope(msg *Message, originHost string) (*Envelope, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return &Envelope{
		ID:         uuid.New().String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		OriginHost: originHost,
		Body:       body,
	}, nil
}

// Message decodes the wrapped message
func (e *Envelope) Message() (*Message, error) {
	if len(e.Body) == 0 || string(e.Body) == "null" {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidEnvelope)
	}
	var msg Message
	if err := json.Unmarshal(e.Body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if msg.Header.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidEnvelope, msg.Header.Version)
	}
	return &msg, nil
}

// EncodeMessage wraps and marshals msg in one step
func EncodeMessage(msg *Message, originHost string) ([]byte, error) {
	env, err := NewEnvelope(msg, originHost)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// DecodeMessage unmarshals an envelope and returns the wrapped message
func DecodeMessage(data []byte) (*Message, *Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	msg, err := env.Message()
	if err != nil {
		return nil, nil, err
	}
	return msg, &env, nil
}
