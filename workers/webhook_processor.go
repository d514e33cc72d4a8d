package workers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"selene/config"
	"selene/models"

	"github.com/jinzhu/gorm"
	log "github.com/sirupsen/logrus"
)

const webhookUserAgent = "Selene-Webhooks/1.0"

// WebhookProcessor drains the webhook job queue. The queue is the DB: a job
// is claimed by flipping pending -> processing, so a row is never handed to
// two workers at once even with several processor instances running.
//
// Failed attempts requeue with a linear backoff (base delay * attempt
// number) until the attempt budget is spent, then the job is marked failed
// with its last error. Terminal states are always written, never dropped.
type WebhookProcessor struct {
	db          *gorm.DB
	maxAttempts int
	baseDelay   time.Duration
	client      *http.Client
}

func NewWebhookProcessor(db *gorm.DB, cfg config.Configuration) *WebhookProcessor {
	return &WebhookProcessor{
		db:          db,
		maxAttempts: cfg.Webhook.MaxAttempts,
		baseDelay:   time.Duration(cfg.Webhook.BaseDelaySeconds) * time.Second,
		client: &http.Client{
			Timeout: time.Duration(cfg.Webhook.TimeoutSeconds) * time.Second,
		},
	}
}

// Start runs the polling loop until the process exits.
func (p *WebhookProcessor) Start() {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			p.ProcessDue()
		}
	}()
}

// ProcessDue claims and handles every due pending job, one at a time.
func (p *WebhookProcessor) ProcessDue() {
	now := time.Now()

	var jobs []models.WebhookJob
	if err := p.db.
		Where("status = ?", models.WEBHOOK_JOB_STATUS_PENDING).
		Where("scheduled_at IS NOT NULL AND scheduled_at <= ?", now).
		Order("scheduled_at asc, id asc").
		Limit(50).
		Find(&jobs).Error; err != nil {
		log.WithError(err).Error("webhook worker: queue query failed")
		return
	}

	for _, job := range jobs {
		// optimistic claim: only the worker that flips the status runs the job
		res := p.db.Model(&models.WebhookJob{}).
			Where("id = ? AND status = ?", job.ID, models.WEBHOOK_JOB_STATUS_PENDING).
			Update("status", models.WEBHOOK_JOB_STATUS_PROCESSING)
		if res.Error != nil || res.RowsAffected == 0 {
			continue
		}
		p.handleJob(job.ID)
	}
}

// envelope is the wire format delivered to endpoints. Timestamp is when the
// event fired, so retries carry a stable value.
type envelope struct {
	Event     string          `json:"event"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func (p *WebhookProcessor) handleJob(jobID int64) {
	var job models.WebhookJob
	if err := p.db.First(&job, jobID).Error; err != nil {
		return
	}
	if job.Status != models.WEBHOOK_JOB_STATUS_PROCESSING {
		return
	}

	attempt := job.AttemptsMade + 1
	if err := p.deliver(&job); err != nil {
		p.recordFailure(&job, attempt, err)
		return
	}

	now := time.Now()
	_ = p.db.Model(&models.WebhookJob{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
		"status":        models.WEBHOOK_JOB_STATUS_COMPLETED,
		"attempts_made": attempt,
		"processed_at":  &now,
		"last_error":    "",
	}).Error
	log.WithFields(log.Fields{
		"job_id":   job.ID,
		"event":    job.EventName,
		"url":      job.URL,
		"attempts": attempt,
	}).Info("webhook delivered")
}

func (p *WebhookProcessor) recordFailure(job *models.WebhookJob, attempt int, cause error) {
	now := time.Now()

	if attempt < p.maxAttempts {
		// explicit requeue with a growing delay; the same loop picks it up
		retryAt := now.Add(p.baseDelay * time.Duration(attempt))
		_ = p.db.Model(&models.WebhookJob{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
			"status":        models.WEBHOOK_JOB_STATUS_PENDING,
			"attempts_made": attempt,
			"scheduled_at":  &retryAt,
			"last_error":    cause.Error(),
		}).Error
		log.WithFields(log.Fields{
			"job_id":   job.ID,
			"event":    job.EventName,
			"url":      job.URL,
			"attempt":  attempt,
			"retry_at": retryAt,
		}).WithError(cause).Warn("webhook delivery failed, requeued")
		return
	}

	_ = p.db.Model(&models.WebhookJob{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
		"status":        models.WEBHOOK_JOB_STATUS_FAILED,
		"attempts_made": attempt,
		"processed_at":  &now,
		"last_error":    cause.Error(),
	}).Error
	log.WithFields(log.Fields{
		"job_id":     job.ID,
		"webhook_id": job.WebhookID,
		"event":      job.EventName,
		"url":        job.URL,
		"attempts":   attempt,
		"payload":    job.Payload,
	}).WithError(cause).Error("webhook delivery permanently failed")
}

func (p *WebhookProcessor) deliver(job *models.WebhookJob) error {
	firedAt := time.Now()
	if job.CreatedAt != nil {
		firedAt = *job.CreatedAt
	}
	payload := job.Payload
	if payload == "" {
		payload = "null"
	}
	body, err := json.Marshal(envelope{
		Event:     job.EventName,
		Timestamp: firedAt.UTC().Format(time.RFC3339),
		Data:      json.RawMessage(payload),
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	method := job.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequest(method, job.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)
	if job.Headers != "" {
		var extra map[string]string
		if err := json.Unmarshal([]byte(job.Headers), &extra); err == nil {
			for k, v := range extra {
				req.Header.Set(k, v)
			}
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
