package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sunr3d/zip-streamer/internal/interfaces/infra"
)

const flushTimeout = 2 * time.Second

var ErrSentryInit = errors.New("не удалось инициализировать Sentry")

var _ infra.Reporter = (*reporter)(nil)

type reporter struct {
	logger         *zap.Logger
	isCancellation func(error) bool
	hub            *sentry.Hub
}

// New создаёт репортер ошибок. Отмены (isCancellation) только логируются
// предупреждением и никогда не уходят в Sentry. Пустой dsn отключает Sentry.
func New(log *zap.Logger, dsn string, isCancellation func(error) bool) (infra.Reporter, error) {
	r := &reporter{
		logger:         log,
		isCancellation: isCancellation,
	}

	if dsn == "" {
		return r, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:        dsn,
		BeforeSend: r.beforeSend,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSentryInit, err)
	}

	r.hub = sentry.NewHub(client, sentry.NewScope())
	log.Info("Sentry подключен")

	return r, nil
}

func (r *reporter) Report(ctx context.Context, err error, fields ...zap.Field) {
	if err == nil {
		return
	}

	if r.cancelled(err) {
		r.logger.Warn("передача прервана", append(fields, zap.Error(err))...)
		return
	}

	r.logger.Error("ошибка обработки запроса", append(fields, zap.Error(err))...)

	if r.hub == nil {
		return
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}

	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetContext("request", enc.Fields)
		r.hub.CaptureException(err)
	})
}

func (r *reporter) Flush() {
	if r.hub == nil {
		return
	}
	r.hub.Flush(flushTimeout)
}

func (r *reporter) cancelled(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	return r.isCancellation != nil && r.isCancellation(err)
}

func (r *reporter) beforeSend(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint != nil && hint.OriginalException != nil && r.cancelled(hint.OriginalException) {
		return nil
	}
	return event
}
