package archive_service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sunr3d/zip-streamer/internal/config"
	"github.com/sunr3d/zip-streamer/internal/interfaces/infra"
	"github.com/sunr3d/zip-streamer/internal/interfaces/services"
	"github.com/sunr3d/zip-streamer/models"
)

// nameRules - один сегмент пути, не похожий на ключ командной строки.
const nameRules = `required,startsnotwith=-,excludesall=/\`

var _ services.ArchiveStreamer = (*archiveStreamer)(nil)

type archiveStreamer struct {
	logger   *zap.Logger
	repo     infra.JobRegistry
	launcher infra.Launcher
	validate *validator.Validate

	baseDir string
	root    *os.Root

	chunkDelay   time.Duration
	chunkSize    int
	writeTimeout time.Duration
	slots        *semaphore.Weighted
}

func New(log *zap.Logger, cfg *config.Config, repo infra.JobRegistry, launcher infra.Launcher) (services.ArchiveStreamer, error) {
	baseDir, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBaseDir, err)
	}

	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBaseDir, err)
	}

	s := &archiveStreamer{
		logger:       log,
		repo:         repo,
		launcher:     launcher,
		validate:     validator.New(),
		baseDir:      baseDir,
		root:         root,
		chunkDelay:   cfg.ChunkDelay(),
		chunkSize:    cfg.ChunkSize,
		writeTimeout: cfg.StreamWriteTimeout,
	}
	if cfg.MaxStreams > 0 {
		s.slots = semaphore.NewWeighted(int64(cfg.MaxStreams))
	}

	log.Info("сервис архивов готов",
		zap.String("base_dir", baseDir),
		zap.Duration("chunk_delay", s.chunkDelay),
		zap.Int("chunk_size", s.chunkSize),
		zap.Int("max_streams", cfg.MaxStreams),
	)

	return s, nil
}

func (s *archiveStreamer) Validate(ctx context.Context, name string) (string, error) {
	select {
	case <-ctx.Done():
		return "", cancelled(ctx)
	default:
	}

	if name == "." || name == ".." {
		return "", ErrInvalidName
	}

	if err := s.validate.Var(name, nameRules); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	if strings.IndexFunc(name, unicode.IsControl) >= 0 || !filepath.IsLocal(name) {
		return "", ErrInvalidName
	}

	info, err := s.root.Stat(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s не является директорией", ErrNotFound, name)
	}

	return filepath.Join(s.baseDir, name), nil
}

func (s *archiveStreamer) Stream(ctx context.Context, name string, w http.ResponseWriter) error {
	dir, err := s.Validate(ctx, name)
	if err != nil {
		return err
	}

	if s.slots != nil {
		if !s.slots.TryAcquire(1) {
			return ErrServerBusy
		}
		defer s.slots.Release(1)
	}

	now := time.Now()
	job := &models.ArchiveJob{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    models.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.saveJob(ctx, job)

	log := s.logger.With(
		zap.String("job_id", job.ID),
		zap.String("archive", name),
	)
	log.Info("начало выдачи архива", zap.String("dir", dir))

	err = s.stream(ctx, job, w, log)

	job.UpdatedAt = time.Now()
	if err != nil {
		job.Status = models.JobStatusAborted
		job.Error = err.Error()
	} else {
		job.Status = models.JobStatusFinalized
	}
	s.saveJob(ctx, job)

	log.Info("выдача архива завершена",
		zap.String("status", string(job.Status)),
		zap.Int64("bytes", job.BytesSent),
		zap.Int("chunks", job.Chunks),
		zap.Duration("duration", job.UpdatedAt.Sub(job.CreatedAt)),
	)

	return err
}

func (s *archiveStreamer) Close() error {
	return s.root.Close()
}

// stream отправляет заголовки, запускает архиватор и пересылает его вывод.
// Процесс гарантированно убит (если не завершился сам) и дождан до выхода.
func (s *archiveStreamer) stream(ctx context.Context, job *models.ArchiveJob, w http.ResponseWriter, log *zap.Logger) error {
	rc := http.NewResponseController(w)
	if s.writeTimeout == 0 {
		// снимаем общий WriteTimeout сервера, если он задан
		if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return fmt.Errorf("%w: %v", ErrStreamIO, err)
		}
	}

	h := w.Header()
	h.Set("Content-Type", "application/zip")
	h.Set("Content-Disposition", contentDisposition(job.Name))
	h.Set("X-Archive-Job", job.ID)
	w.WriteHeader(http.StatusOK)
	if err := flush(ctx, rc); err != nil {
		return err
	}

	job.Status = models.JobStatusStreaming
	job.UpdatedAt = time.Now()
	s.saveJob(ctx, job)

	proc, err := s.launcher.Start(ctx, s.baseDir, job.Name)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(ctx)
		}
		return fmt.Errorf("%w: %v", ErrProcessSpawn, err)
	}
	log = log.With(zap.Int("pid", proc.Pid()))

	stop := context.AfterFunc(ctx, func() {
		_ = proc.Kill()
	})

	clean := false
	defer func() {
		stop()
		if !clean {
			if err := proc.Kill(); err != nil {
				log.Error("не удалось убить архиватор", zap.Error(err))
			}
		}

		waitErr := proc.Wait()
		switch {
		case !clean:
			log.Debug("архиватор остановлен", zap.NamedError("exit", waitErr))
		case waitErr != nil:
			log.Warn("архиватор завершился с ошибкой", zap.Error(waitErr))
		}
	}()

	if err := s.relay(ctx, proc, w, rc, job); err != nil {
		return err
	}

	if !stop() || ctx.Err() != nil {
		return cancelled(ctx)
	}

	clean = true
	return nil
}

// relay копирует stdout архиватора в ответ фрагментами не больше chunkSize.
func (s *archiveStreamer) relay(ctx context.Context, src io.Reader, w io.Writer, rc *http.ResponseController, job *models.ArchiveJob) error {
	buf := make([]byte, s.chunkSize)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if err := s.pause(ctx); err != nil {
				return err
			}

			if err := s.writeChunk(ctx, w, rc, buf[:n]); err != nil {
				return err
			}

			job.Chunks++
			job.BytesSent += int64(n)
			s.logger.Debug("фрагмент архива отправлен",
				zap.String("job_id", job.ID),
				zap.Int("size", n),
			)
		}

		if errors.Is(rerr, io.EOF) {
			return nil
		}
		if rerr != nil {
			if ctx.Err() != nil {
				return cancelled(ctx)
			}
			return fmt.Errorf("%w: чтение вывода архиватора: %v", ErrStreamIO, rerr)
		}
	}
}

func (s *archiveStreamer) pause(ctx context.Context) error {
	if s.chunkDelay <= 0 {
		return nil
	}

	t := time.NewTimer(s.chunkDelay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return cancelled(ctx)
	case <-t.C:
		return nil
	}
}

func (s *archiveStreamer) writeChunk(ctx context.Context, w io.Writer, rc *http.ResponseController, p []byte) error {
	if s.writeTimeout > 0 {
		err := rc.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err != nil && !errors.Is(err, http.ErrNotSupported) {
			return fmt.Errorf("%w: %v", ErrStreamIO, err)
		}
	}

	if _, err := w.Write(p); err != nil {
		if ctx.Err() != nil {
			return cancelled(ctx)
		}
		return fmt.Errorf("%w: %v", ErrStreamIO, err)
	}

	return flush(ctx, rc)
}

func (s *archiveStreamer) saveJob(ctx context.Context, job *models.ArchiveJob) {
	if err := s.repo.SaveJob(context.WithoutCancel(ctx), job); err != nil {
		s.logger.Warn("не удалось сохранить задачу",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	}
}

func flush(ctx context.Context, rc *http.ResponseController) error {
	err := rc.Flush()
	if err == nil || errors.Is(err, http.ErrNotSupported) {
		return nil
	}
	if ctx.Err() != nil {
		return cancelled(ctx)
	}
	return fmt.Errorf("%w: %v", ErrStreamIO, err)
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %v", ErrCancelled, context.Cause(ctx))
}

func contentDisposition(name string) string {
	return fmt.Sprintf(`attachment; filename="%s.zip"`, strings.ReplaceAll(name, `"`, `\"`))
}
