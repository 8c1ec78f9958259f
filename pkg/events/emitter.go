// Package events turns merge outcomes into Kafka events.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/mkalnins/bryony/pkg/kafka"
	"github.com/mkalnins/bryony/pkg/models"
	"github.com/mkalnins/bryony/pkg/tracing"
)

const (
	EventOfficeCreated  = "office.created"
	EventOfficeUpdated  = "office.updated"
	EventOfficeDeleted  = "office.deleted"
	EventAnalysisMerged = "analysis.merged"
)

// Emitter publishes merge outcome events. A nil Emitter is safe to call and
// drops everything, so callers do not branch on whether the producer is
// configured.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates an Emitter backed by the given producer.
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{producer: producer, logger: logger}
}

// OfficesResolved publishes one created/updated event per resolved office.
// Statuses and offices are matched by unique id.
func (e *Emitter) OfficesResolved(ctx context.Context, tenantID, runID string, offices []models.Office, statuses []models.OfficeStatus) error {
	if e == nil || e.producer == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.OfficesResolved")
	defer span.End()

	byID := make(map[string]models.Office, len(offices))
	for _, office := range offices {
		byID[office.UniqueID] = office
	}

	batch := make([]*kafka.OutcomeEvent, 0, len(statuses))
	now := time.Now().UTC()
	for _, status := range statuses {
		eventType := EventOfficeCreated
		if status.ExistedInDatabase {
			eventType = EventOfficeUpdated
		}

		event := &kafka.OutcomeEvent{
			EventType: eventType,
			TenantID:  tenantID,
			SubjectID: status.UniqueID,
			RunID:     runID,
			Timestamp: now,
		}
		if office, ok := byID[status.UniqueID]; ok {
			event.Version = office.Metadata.DataVersion
			data, err := json.Marshal(office)
			if err == nil {
				event.Data = data
			}
		}
		batch = append(batch, event)
	}

	return e.producer.PublishOutcomeEvents(ctx, batch)
}

// AnalysisMerged publishes one event carrying the run's feedback summary.
func (e *Emitter) AnalysisMerged(ctx context.Context, tenantID, runID, analysisID string, feedback models.FeedbackReport) error {
	if e == nil || e.producer == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.AnalysisMerged")
	defer span.End()

	data, err := json.Marshal(feedback)
	if err != nil {
		return err
	}

	return e.producer.PublishOutcomeEvent(ctx, &kafka.OutcomeEvent{
		EventType: EventAnalysisMerged,
		TenantID:  tenantID,
		SubjectID: analysisID,
		RunID:     runID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// OfficeDeleted publishes a soft-delete event.
func (e *Emitter) OfficeDeleted(ctx context.Context, tenantID, uniqueID string) error {
	if e == nil || e.producer == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.OfficeDeleted")
	defer span.End()

	return e.producer.PublishOutcomeEvent(ctx, &kafka.OutcomeEvent{
		EventType: EventOfficeDeleted,
		TenantID:  tenantID,
		SubjectID: uniqueID,
		Timestamp: time.Now().UTC(),
	})
}
