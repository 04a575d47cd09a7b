package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	httpTimeout = 10 * time.Second
	idleTimeout = 120 * time.Second
)

// ErrShutdown - причина отмены контекстов запросов при остановке сервера.
var ErrShutdown = errors.New("сервер останавливается")

type Server struct {
	server          *http.Server
	logger          *zap.Logger
	shutdownTimeout time.Duration
	hooks           []func(context.Context)
}

// New создаёт сервер без ReadTimeout и WriteTimeout: ответы-потоки живут долго,
// а истёкший дедлайн чтения отменил бы контекст запроса. Дедлайны записи
// выставляет сам обработчик.
func New(addr string, handler http.Handler, logger *zap.Logger, shutdownTimeout time.Duration) *Server {
	baseCtx, cancel := context.WithCancelCause(context.Background())

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: httpTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext: func(net.Listener) context.Context {
			return baseCtx
		},
	}
	// Shutdown не отменяет контексты активных запросов сам по себе.
	srv.RegisterOnShutdown(func() {
		cancel(ErrShutdown)
	})

	return &Server{
		server:          srv,
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
	}
}

// OnShutdown регистрирует хук, вызываемый до отмены активных запросов.
func (s *Server) OnShutdown(f func(context.Context)) {
	s.hooks = append(s.hooks, f)
}

// Start слушает адрес сервера до SIGINT/SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("ошибка HTTP сервера: %w", err)
	}

	return s.Serve(ctx, ln)
}

// Serve обслуживает ln, пока не отменён ctx, затем корректно завершает работу.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serverErr := make(chan error, 1)

	go func() {
		s.logger.Info("Запуск HTTP сервера", zap.String("address", ln.Addr().String()))
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("ошибка HTTP сервера: %w", err)
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		s.logger.Info("Получен сигнал завершения", zap.NamedError("cause", context.Cause(ctx)))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		for _, hook := range s.hooks {
			hook(shutdownCtx)
		}

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ошибка при завершении сервера: %w", err)
		}

		s.logger.Info("HTTP сервер успешно остановлен")
		return nil
	}
}
