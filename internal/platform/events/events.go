// Package events carries patient and diagnosis notifications to downstream
// consumers: a Kafka topic, connected websocket clients and the log.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	TypePatientDiagnosed = "patient.diagnosed"
	TypePatientDeleted   = "patient.deleted"

	// TopicPatients receives every patient event; TopicPatient(id) only the
	// events of one patient.
	TopicPatients = "patients"
)

func TopicPatient(id string) string { return "patient:" + id }

// Event is the envelope shared by every publisher.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	PatientID string          `json:"patientId"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// New builds an event with a fresh id and the current time. data is encoded as
// JSON; encoding failures leave Data empty.
func New(eventType, source, patientID string, data interface{}) Event {
	evt := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		PatientID: patientID,
		Timestamp: time.Now().UTC(),
	}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			evt.Data = raw
		}
	}
	return evt
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evt Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes events to the structured log. It is the fallback when
// no broker is configured.
type LogPublisher struct {
	Logger zerolog.Logger
}

func (l LogPublisher) Publish(_ context.Context, evt Event) error {
	l.Logger.Info().
		Str("event_id", evt.ID).
		Str("event_type", evt.Type).
		Str("patient_id", evt.PatientID).
		RawJSON("data", dataOrNull(evt.Data)).
		Msg("event")
	return nil
}

func dataOrNull(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
