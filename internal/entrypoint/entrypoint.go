package entrypoint

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sunr3d/zip-streamer/internal/api"
	"github.com/sunr3d/zip-streamer/internal/config"
	"github.com/sunr3d/zip-streamer/internal/infra/archiver"
	"github.com/sunr3d/zip-streamer/internal/infra/inmem"
	"github.com/sunr3d/zip-streamer/internal/infra/reporting"
	"github.com/sunr3d/zip-streamer/internal/interfaces/infra"
	"github.com/sunr3d/zip-streamer/internal/middleware"
	"github.com/sunr3d/zip-streamer/internal/server"
	"github.com/sunr3d/zip-streamer/internal/services/archive_service"
)

func Run(cfg *config.Config, log *zap.Logger) error {
	launcher, err := archiver.New(log, cfg.ArchiverPath)
	if err != nil {
		return fmt.Errorf("не удалось подготовить архиватор: %w", err)
	}

	reporter, err := reporting.New(log, cfg.SentryDSN, archive_service.IsCancelled)
	if err != nil {
		return err
	}
	defer reporter.Flush()

	db := inmem.New(log, cfg.JobTTL)
	svc, err := archive_service.New(log, cfg, db, launcher)
	if err != nil {
		return fmt.Errorf("не удалось создать сервис архивов: %w", err)
	}
	defer svc.Close()

	controller := api.New(svc, reporter, log, cfg)
	router := controller.Router(
		middleware.Recovery(log),
		middleware.ReqLogger(log),
	)

	srv := server.New(cfg.Addr(), router, log, cfg.ShutdownTimeout)
	srv.OnShutdown(func(ctx context.Context) {
		logActiveJobs(ctx, db, log)
	})

	return srv.Start()
}

// logActiveJobs перечисляет выгрузки, которые будут оборваны остановкой сервера.
func logActiveJobs(ctx context.Context, db infra.JobRegistry, log *zap.Logger) {
	active, err := db.CountActive(ctx)
	if err != nil {
		log.Warn("не удалось получить активные выгрузки", zap.Error(err))
		return
	}

	log.Info("остановка сервера", zap.Int("active_streams", active))
	if active == 0 {
		return
	}

	jobs, err := db.ListActive(ctx)
	if err != nil {
		log.Warn("не удалось получить активные выгрузки", zap.Error(err))
		return
	}

	for _, job := range jobs {
		log.Warn("выгрузка будет прервана остановкой сервера",
			zap.String("job_id", job.ID),
			zap.String("archive", job.Name),
			zap.Time("started_at", job.CreatedAt),
		)
	}
}
