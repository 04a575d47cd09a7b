package models

import "time"

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusStreaming JobStatus = "streaming"
	JobStatusFinalized JobStatus = "finalized"
	JobStatusAborted   JobStatus = "aborted"
)

// ArchiveJob описывает одну выдачу архива. Хранит только метаданные:
// процесс и поток ответа принадлежат обработчику запроса.
type ArchiveJob struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    JobStatus `json:"status"`
	BytesSent int64     `json:"bytes_sent"`
	Chunks    int       `json:"chunks"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *ArchiveJob) Active() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusStreaming
}
