package domain

import (
	"context"
	"time"
)

// ClassifyJobCause описывает источник запроса на классификацию.
type ClassifyJobCause string

const (
	// ClassifyCauseManual — аналитик запросил генерацию из дашборда.
	ClassifyCauseManual ClassifyJobCause = "manual"
	// ClassifyCauseBatch — термин поставлен пакетным скриптом.
	ClassifyCauseBatch ClassifyJobCause = "batch"
)

// ClassifyJob — задача на построение записи термина.
type ClassifyJob struct {
	ID          string           `json:"job_id,omitempty"`
	SearchTerm  string           `json:"search_term"`
	RequestedAt time.Time        `json:"requested_at"`
	Cause       ClassifyJobCause `json:"cause"`
}

// ClassifyQueue — очередь задач классификации.
type ClassifyQueue interface {
	Enqueue(ctx context.Context, job ClassifyJob) error
	// Pop блокирующе читает следующую задачу.
	Pop(ctx context.Context) (ClassifyJob, error)
}
