package workers

import (
	"encoding/json"
	"fmt"
	"time"

	"selene/config"
	"selene/models"

	"github.com/jinzhu/gorm"
	log "github.com/sirupsen/logrus"
)

// TaskScheduler drains the scheduled maintenance queue on a timer. Tasks are
// claimed with the same optimistic status flip the webhook worker uses.
// Unknown or unimplemented task types complete with a not_implemented result
// so a stray row can never crash the loop.
type TaskScheduler struct {
	db              *gorm.DB
	cleanupOlder    int // hours
	cleanupBatch    int
	cleanupInterval time.Duration
}

func NewTaskScheduler(db *gorm.DB, cfg config.Configuration) *TaskScheduler {
	return &TaskScheduler{
		db:              db,
		cleanupOlder:    cfg.Cleanup.OlderThanHours,
		cleanupBatch:    cfg.Cleanup.BatchSize,
		cleanupInterval: time.Duration(cfg.Cleanup.IntervalHours) * time.Hour,
	}
}

// Start seeds the recurring cleanup task and runs the polling loop.
func (s *TaskScheduler) Start() {
	if err := s.EnsureCleanupScheduled(time.Now()); err != nil {
		log.WithError(err).Error("scheduler: failed to seed cleanup task")
	}
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			s.ProcessDue()
		}
	}()
}

// EnsureCleanupScheduled enqueues a cleanup task at runAt unless one is
// already pending.
func (s *TaskScheduler) EnsureCleanupScheduled(runAt time.Time) error {
	var count int
	if err := s.db.Model(&models.ScheduledTask{}).
		Where("task_type = ? AND status = ?", models.TASK_TYPE_CLEANUP, models.TASK_STATUS_PENDING).
		Count(&count).Error; err != nil {
		return fmt.Errorf("count pending cleanup tasks: %w", err)
	}
	if count > 0 {
		return nil
	}
	task, err := models.NewScheduledTask(models.CleanupPayload{
		OlderThanHours: s.cleanupOlder,
		BatchSize:      s.cleanupBatch,
	}, runAt)
	if err != nil {
		return err
	}
	if err := s.db.Create(task).Error; err != nil {
		return fmt.Errorf("enqueue cleanup task: %w", err)
	}
	return nil
}

// ProcessDue claims and runs every due pending task, one at a time.
func (s *TaskScheduler) ProcessDue() {
	now := time.Now()

	var tasks []models.ScheduledTask
	if err := s.db.
		Where("status = ?", models.TASK_STATUS_PENDING).
		Where("scheduled_at IS NOT NULL AND scheduled_at <= ?", now).
		Order("scheduled_at asc, id asc").
		Limit(20).
		Find(&tasks).Error; err != nil {
		log.WithError(err).Error("scheduler: queue query failed")
		return
	}

	for _, task := range tasks {
		res := s.db.Model(&models.ScheduledTask{}).
			Where("id = ? AND status = ?", task.ID, models.TASK_STATUS_PENDING).
			Update("status", models.TASK_STATUS_PROCESSING)
		if res.Error != nil || res.RowsAffected == 0 {
			continue
		}
		s.handleTask(task.ID)
	}
}

func (s *TaskScheduler) handleTask(taskID int64) {
	var task models.ScheduledTask
	if err := s.db.First(&task, taskID).Error; err != nil {
		return
	}
	if task.Status != models.TASK_STATUS_PROCESSING {
		return
	}

	payload, err := task.DecodePayload()
	if err != nil {
		s.finishTask(task.ID, models.TASK_STATUS_FAILED, "", err)
		return
	}

	switch p := payload.(type) {
	case models.CleanupPayload:
		result, err := s.runCleanup(p)
		if err != nil {
			s.finishTask(task.ID, models.TASK_STATUS_FAILED, result, err)
		} else {
			s.finishTask(task.ID, models.TASK_STATUS_DONE, result, nil)
		}
		// cleanup is recurring: queue the next run regardless of outcome
		if err := s.EnsureCleanupScheduled(time.Now().Add(s.cleanupInterval)); err != nil {
			log.WithError(err).Error("scheduler: failed to reschedule cleanup")
		}
	case models.ReportPayload, models.BackupPayload, models.NotificationPayload:
		// registered but not built yet; report it instead of blowing up
		s.finishTask(task.ID, models.TASK_STATUS_DONE, `{"status":"not_implemented"}`, nil)
	default:
		s.finishTask(task.ID, models.TASK_STATUS_FAILED, "", fmt.Errorf("unhandled task payload %T", p))
	}
}

func (s *TaskScheduler) finishTask(taskID int64, status, result string, cause error) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       status,
		"processed_at": &now,
		"result":       result,
	}
	if cause != nil {
		updates["last_error"] = cause.Error()
	}
	_ = s.db.Model(&models.ScheduledTask{}).Where("id = ?", taskID).Updates(updates).Error

	entry := log.WithFields(log.Fields{"task_id": taskID, "status": status})
	if cause != nil {
		entry.WithError(cause).Error("scheduled task failed")
		return
	}
	entry.Info("scheduled task finished")
}

// runCleanup deletes refresh tokens whose expiry is older than the
// configured age, in bounded batches. Returns a JSON result with the count
// and elapsed time; on error the count deleted so far is still reported.
func (s *TaskScheduler) runCleanup(p models.CleanupPayload) (string, error) {
	olderThan := p.OlderThanHours
	if olderThan <= 0 {
		olderThan = s.cleanupOlder
	}
	batch := p.BatchSize
	if batch <= 0 {
		batch = s.cleanupBatch
	}

	start := time.Now()
	cutoff := start.Add(-time.Duration(olderThan) * time.Hour)
	deleted := 0

	for {
		// sqlite has no DELETE ... LIMIT, so pick ids first
		var ids []int64
		rows, err := s.db.Model(&models.RefreshToken{}).
			Where("expires_at IS NOT NULL AND expires_at < ?", cutoff).
			Limit(batch).
			Select("id").Rows()
		if err != nil {
			return cleanupResult(deleted, start), fmt.Errorf("select expired tokens: %w", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return cleanupResult(deleted, start), fmt.Errorf("scan expired token id: %w", err)
			}
			ids = append(ids, id)
		}
		rows.Close()

		if len(ids) == 0 {
			break
		}

		res := s.db.Where("id IN (?)", ids).Delete(&models.RefreshToken{})
		if res.Error != nil {
			return cleanupResult(deleted, start), fmt.Errorf("delete expired tokens: %w", res.Error)
		}
		deleted += int(res.RowsAffected)

		if len(ids) < batch {
			break
		}
	}

	log.WithFields(log.Fields{
		"deleted":    deleted,
		"elapsed_ms": time.Since(start).Milliseconds(),
		"cutoff":     cutoff,
	}).Info("refresh token cleanup finished")
	return cleanupResult(deleted, start), nil
}

func cleanupResult(deleted int, start time.Time) string {
	b, _ := json.Marshal(map[string]interface{}{
		"deleted":    deleted,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return string(b)
}
