package webhooks

import (
	"encoding/json"
	"fmt"
	"time"

	"selene/models"

	"github.com/jinzhu/gorm"
	log "github.com/sirupsen/logrus"
)

// Dispatcher persists one pending delivery job per registration matching an
// event. The jobs table is the durable queue; the delivery worker drains it.
type Dispatcher struct {
	db       *gorm.DB
	registry *Registry
}

func NewDispatcher(db *gorm.DB, registry *Registry) *Dispatcher {
	return &Dispatcher{db: db, registry: registry}
}

// Emit enqueues delivery jobs for every endpoint subscribed to event.
// Zero matches is not an error. Each job carries its own retry budget, so
// one endpoint failing never delays another.
func (d *Dispatcher) Emit(event string, data interface{}) error {
	matches := d.registry.Match(event)
	if len(matches) == 0 {
		return nil
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	now := time.Now()
	failed := 0
	for _, reg := range matches {
		job := &models.WebhookJob{
			WebhookID:   reg.ID,
			EventName:   event,
			URL:         reg.URL,
			Method:      "POST",
			Payload:     string(payload),
			Status:      models.WEBHOOK_JOB_STATUS_PENDING,
			ScheduledAt: &now,
		}
		// one registration failing to enqueue must not suppress the others
		if err := d.db.Create(job).Error; err != nil {
			failed++
			log.WithFields(log.Fields{
				"event":      event,
				"webhook_id": reg.ID,
				"url":        reg.URL,
			}).WithError(err).Error("failed to enqueue webhook job")
			continue
		}
		log.WithFields(log.Fields{
			"event":      event,
			"webhook_id": reg.ID,
			"job_id":     job.ID,
		}).Debug("webhook job queued")
	}
	if failed > 0 {
		return fmt.Errorf("failed to enqueue %d of %d webhook jobs", failed, len(matches))
	}
	return nil
}
