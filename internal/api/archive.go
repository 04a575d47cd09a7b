package api

import (
	_ "embed"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sunr3d/zip-streamer/internal/config"
	"github.com/sunr3d/zip-streamer/internal/interfaces/infra"
	"github.com/sunr3d/zip-streamer/internal/interfaces/services"
	"github.com/sunr3d/zip-streamer/internal/services/archive_service"
)

//go:embed static/index.html
var defaultIndex []byte

type ArchiveAPI struct {
	service  services.ArchiveStreamer
	reporter infra.Reporter
	logger   *zap.Logger
	cfg      *config.Config
}

func New(service services.ArchiveStreamer, reporter infra.Reporter, logger *zap.Logger, cfg *config.Config) *ArchiveAPI {
	return &ArchiveAPI{
		service:  service,
		reporter: reporter,
		logger:   logger,
		cfg:      cfg,
	}
}

// Router собирает маршруты. mws применяются после RequestID и RealIP.
func (h *ArchiveAPI) Router(mws ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID, chimw.RealIP)
	r.Use(mws...)

	if len(h.cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead},
			ExposedHeaders: []string{"Content-Disposition", "X-Archive-Job"},
		}))
	}

	r.Get("/", h.Index)
	r.Get("/healthz", h.Health)
	r.Get("/archive/{name}", h.DownloadArchive)
	r.Get("/archive/{name}/", h.DownloadArchive)

	return r
}

// GET /archive/{name}/
func (h *ArchiveAPI) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctx := r.Context()

	ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

	err := h.service.Stream(ctx, name, ww)
	switch {
	case err == nil:
		return

	case errors.Is(err, archive_service.ErrCancelled) && ww.Status() == 0:
		// клиент ушёл до начала ответа, отвечать некому
		h.logger.Debug("запрос отменён до начала выдачи",
			zap.String("archive", name),
			zap.Error(err),
		)

	case errors.Is(err, archive_service.ErrNotFound):
		h.logger.Info("запрошен несуществующий архив",
			zap.String("archive", name),
			zap.Error(err),
		)
		http.Error(ww, "Архив не существует или был удален", http.StatusNotFound)

	case errors.Is(err, archive_service.ErrServerBusy):
		ww.Header().Set("Retry-After", "5")
		http.Error(ww, "Сервер занят, попробуйте позже", http.StatusServiceUnavailable)

	case archive_service.IsAborted(err):
		// После отправки статуса об ошибке можно сообщить только обрывом
		// соединения без завершающего чанка: клиент увидит незавершённую загрузку.
		h.reporter.Report(ctx, err,
			zap.String("archive", name),
			zap.String("request_id", chimw.GetReqID(ctx)),
		)
		panic(http.ErrAbortHandler)

	default:
		h.reporter.Report(ctx, err,
			zap.String("archive", name),
			zap.String("request_id", chimw.GetReqID(ctx)),
		)
		http.Error(ww, "Внутренняя ошибка сервера", http.StatusInternalServerError)
	}
}

// GET /
func (h *ArchiveAPI) Index(w http.ResponseWriter, r *http.Request) {
	if h.cfg.IndexFile != "" {
		info, err := os.Stat(h.cfg.IndexFile)
		if err == nil && !info.IsDir() {
			http.ServeFile(w, r, h.cfg.IndexFile)
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(defaultIndex); err != nil {
		h.logger.Debug("не удалось отправить главную страницу", zap.Error(err))
	}
}

// GET /healthz
func (h *ArchiveAPI) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
