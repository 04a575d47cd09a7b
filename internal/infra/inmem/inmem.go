package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sunr3d/zip-streamer/internal/interfaces/infra"
	"github.com/sunr3d/zip-streamer/models"
)

var _ infra.JobRegistry = (*inmemDB)(nil)

type inmemDB struct {
	logger *zap.Logger
	db     map[string]*models.ArchiveJob
	mu     sync.RWMutex
	ttl    time.Duration
	now    func() time.Time
}

// New создаёт реестр задач. Завершённые задачи удаляются спустя ttl.
func New(log *zap.Logger, ttl time.Duration) infra.JobRegistry {
	return &inmemDB{
		logger: log,
		db:     make(map[string]*models.ArchiveJob),
		ttl:    ttl,
		now:    time.Now,
	}
}

// SaveJob сохраняет копию задачи, чтобы вызывающий мог и дальше менять свою.
func (db *inmemDB) SaveJob(ctx context.Context, job *models.ArchiveJob) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextDone, ctx.Err())
	default:
	}

	if job == nil {
		return ErrJobNil
	}

	if job.ID == "" {
		return ErrJobIDEmpty
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.evictExpired()

	cp := *job
	db.db[job.ID] = &cp
	db.logger.Debug("задача сохранена",
		zap.String("job_id", job.ID),
		zap.String("status", string(job.Status)),
	)

	return nil
}

func (db *inmemDB) GetJob(ctx context.Context, id string) (*models.ArchiveJob, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrContextDone, ctx.Err())
	default:
	}

	if id == "" {
		return nil, ErrJobIDEmpty
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	job, exists := db.db[id]
	if !exists {
		return nil, ErrJobNotFound
	}

	cp := *job
	return &cp, nil
}

func (db *inmemDB) CountActive(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %v", ErrContextDone, ctx.Err())
	default:
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.evictExpired()

	count := 0
	for _, job := range db.db {
		if job.Active() {
			count++
		}
	}

	return count, nil
}

// ListActive возвращает незавершённые задачи в порядке создания.
func (db *inmemDB) ListActive(ctx context.Context) ([]models.ArchiveJob, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrContextDone, ctx.Err())
	default:
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.evictExpired()

	jobs := make([]models.ArchiveJob, 0, len(db.db))
	for _, job := range db.db {
		if job.Active() {
			jobs = append(jobs, *job)
		}
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})

	return jobs, nil
}

// evictExpired вызывается под db.mu.Lock.
func (db *inmemDB) evictExpired() {
	now := db.now()
	for id, job := range db.db {
		if !job.Active() && now.Sub(job.UpdatedAt) > db.ttl {
			delete(db.db, id)
			db.logger.Debug("задача удалена по TTL", zap.String("job_id", id))
		}
	}
}
