package models

import (
	"encoding/json"
	"fmt"
	"time"
)

/************************************************
/**** MARK: SCHEDULED TASK TYPES ****/
/************************************************/
const TASK_TYPE_CLEANUP = "cleanup"
const TASK_TYPE_REPORT = "report"
const TASK_TYPE_BACKUP = "backup"
const TASK_TYPE_NOTIFICATION = "notification"

/************************************************
/**** MARK: SCHEDULED TASK STATUS ****/
/************************************************/
const TASK_STATUS_PENDING = "pending"
const TASK_STATUS_PROCESSING = "processing"
const TASK_STATUS_DONE = "done"
const TASK_STATUS_FAILED = "failed"

// ScheduledTask is one queued maintenance job. TaskData is the JSON encoding
// of the payload type matching TaskType (see DecodePayload).
type ScheduledTask struct {
	ID          int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	TaskType    string     `gorm:"not null;index" json:"task_type"`
	TaskData    string     `gorm:"type:text" json:"task_data"`
	Status      string     `gorm:"not null;default:'pending';index" json:"status"`
	ScheduledAt *time.Time `gorm:"index" json:"scheduled_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	Result      string     `gorm:"type:text" json:"result"`
	LastError   string     `gorm:"type:text" json:"last_error"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// TaskPayload is the closed set of typed task payloads. Workers type-switch
// on the concrete payload instead of re-inspecting the task_type string.
type TaskPayload interface {
	TaskType() string
}

// CleanupPayload drives expired refresh-token cleanup.
type CleanupPayload struct {
	OlderThanHours int `json:"older_than_hours"`
	BatchSize      int `json:"batch_size"`
}

func (CleanupPayload) TaskType() string { return TASK_TYPE_CLEANUP }

type ReportPayload struct {
	Period string `json:"period"`
}

func (ReportPayload) TaskType() string { return TASK_TYPE_REPORT }

type BackupPayload struct {
	Target string `json:"target"`
}

func (BackupPayload) TaskType() string { return TASK_TYPE_BACKUP }

type NotificationPayload struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
}

func (NotificationPayload) TaskType() string { return TASK_TYPE_NOTIFICATION }

// DecodePayload unmarshals TaskData into the payload type for TaskType.
func (t ScheduledTask) DecodePayload() (TaskPayload, error) {
	raw := t.TaskData
	if raw == "" {
		raw = "{}"
	}
	switch t.TaskType {
	case TASK_TYPE_CLEANUP:
		var p CleanupPayload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode cleanup payload: %w", err)
		}
		return p, nil
	case TASK_TYPE_REPORT:
		var p ReportPayload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode report payload: %w", err)
		}
		return p, nil
	case TASK_TYPE_BACKUP:
		var p BackupPayload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode backup payload: %w", err)
		}
		return p, nil
	case TASK_TYPE_NOTIFICATION:
		var p NotificationPayload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode notification payload: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown task type %q", t.TaskType)
	}
}

// NewScheduledTask builds a pending task row from a typed payload.
func NewScheduledTask(payload TaskPayload, runAt time.Time) (*ScheduledTask, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode task payload: %w", err)
	}
	return &ScheduledTask{
		TaskType:    payload.TaskType(),
		TaskData:    string(data),
		Status:      TASK_STATUS_PENDING,
		ScheduledAt: &runAt,
	}, nil
}
