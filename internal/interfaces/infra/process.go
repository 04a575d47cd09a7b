package infra

import (
	"context"
	"io"
)

// Process - запущенный архиватор. Read читает его stdout.
type Process interface {
	io.Reader
	Pid() int
	// Kill немедленно завершает процесс. Повторный вызов безопасен.
	Kill() error
	// Wait дожидается выхода процесса и закрытия его каналов.
	Wait() error
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.2 --name=Launcher --output=../../../mocks
type Launcher interface {
	// Start запускает рекурсивное сжатие поддиректории name базовой директории dir в stdout.
	Start(ctx context.Context, dir, name string) (Process, error)
}
