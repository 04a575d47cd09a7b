package services

import (
	"context"
	"io"
	"net/http"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.2 --name=ArchiveStreamer --output=../../../mocks
type ArchiveStreamer interface {
	// Validate возвращает абсолютный путь к директории name внутри базовой директории.
	Validate(ctx context.Context, name string) (string, error)
	// Stream отдаёт zip-архив директории name в w. После отправки заголовков
	// любая ошибка означает оборванную передачу.
	Stream(ctx context.Context, name string, w http.ResponseWriter) error

	io.Closer
}
