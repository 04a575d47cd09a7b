package entrypoint

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sunr3d/zip-streamer/internal/config"
	"github.com/sunr3d/zip-streamer/internal/infra/inmem"
	"github.com/sunr3d/zip-streamer/models"
)

func TestRun_ArchiverNotFound(t *testing.T) {
	cfg := &config.Config{
		ArchiverPath: filepath.Join(t.TempDir(), "no-such-zip"),
		BaseDir:      t.TempDir(),
		JobTTL:       time.Hour,
	}

	err := Run(cfg, zaptest.NewLogger(t))

	assert.ErrorContains(t, err, "не удалось подготовить архиватор")
}

func TestLogActiveJobs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)
	db := inmem.New(zap.NewNop(), time.Hour)
	ctx := context.Background()

	now := time.Now()
	jobs := []*models.ArchiveJob{
		{ID: "a", Name: "photos1", Status: models.JobStatusStreaming, CreatedAt: now},
		{ID: "b", Name: "photos2", Status: models.JobStatusFinalized, CreatedAt: now, UpdatedAt: now},
	}
	for _, job := range jobs {
		require.NoError(t, db.SaveJob(ctx, job))
	}

	logActiveJobs(ctx, db, log)

	entries := logs.FilterMessage("выгрузка будет прервана остановкой сервера").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].ContextMap()["job_id"])
	assert.Equal(t, "photos1", entries[0].ContextMap()["archive"])

	summary := logs.FilterMessage("остановка сервера").All()
	require.Len(t, summary, 1)
	assert.Equal(t, int64(1), summary[0].ContextMap()["active_streams"])
}

func TestLogActiveJobs_NoActive(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	db := inmem.New(zap.NewNop(), time.Hour)

	logActiveJobs(context.Background(), db, zap.New(core))

	summary := logs.FilterMessage("остановка сервера").All()
	require.Len(t, summary, 1)
	assert.Equal(t, int64(0), summary[0].ContextMap()["active_streams"])
	assert.Zero(t, logs.FilterMessage("выгрузка будет прервана остановкой сервера").Len())
}

func TestLogActiveJobs_ContextDone(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	logActiveJobs(ctx, inmem.New(zap.NewNop(), time.Hour), zap.New(core))

	assert.Equal(t, 1, logs.FilterMessage("не удалось получить активные выгрузки").Len())
}
