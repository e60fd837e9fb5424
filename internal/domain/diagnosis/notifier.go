package diagnosis

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/patient"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/platform/events"
)

const eventSource = "sandhi-server"

// DiagnosedEvent is the payload of a patient.diagnosed event.
type DiagnosedEvent struct {
	PatientID string    `json:"patientId"`
	Name      string    `json:"name"`
	OPDIPDNo  string    `json:"opdIpdNo,omitempty"`
	Verdict   string    `json:"verdict"`
	Diagnosis Diagnosis `json:"diagnosis"`
}

// Notifier re-diagnoses every saved record and publishes the verdict. It is
// registered as a patient.Hook; publish failures are logged, never returned.
type Notifier struct {
	pub    events.Publisher
	logger zerolog.Logger
}

func NewNotifier(pub events.Publisher, logger zerolog.Logger) *Notifier {
	return &Notifier{pub: pub, logger: logger}
}

var _ patient.Hook = (*Notifier)(nil)

func (n *Notifier) AfterSave(ctx context.Context, r *patient.Record) {
	d := Diagnose(r)
	payload := DiagnosedEvent{
		PatientID: r.ID,
		Name:      r.Demographics.Name,
		OPDIPDNo:  r.Demographics.OPDIPDNo,
		Verdict:   d.Verdict(),
		Diagnosis: d,
	}
	n.publish(ctx, events.New(events.TypePatientDiagnosed, eventSource, r.ID, payload))
}

func (n *Notifier) AfterDelete(ctx context.Context, ids []string) {
	for _, id := range ids {
		n.publish(ctx, events.New(events.TypePatientDeleted, eventSource, id, nil))
	}
}

func (n *Notifier) publish(ctx context.Context, evt events.Event) {
	if err := n.pub.Publish(ctx, evt); err != nil {
		n.logger.Warn().Err(err).
			Str("event_type", evt.Type).
			Str("patient_id", evt.PatientID).
			Msg("event delivery failed")
	}
}
