package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/sunr3d/zip-streamer/internal/config"
	"github.com/sunr3d/zip-streamer/internal/entrypoint"
	"github.com/sunr3d/zip-streamer/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LoggingEnabled)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := entrypoint.Run(cfg, log); err != nil {
		log.Error("приложение завершилось с ошибкой", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}
