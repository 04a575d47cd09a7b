package archive_service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("директория не найдена")
	ErrInvalidName = fmt.Errorf("%w: недопустимое имя", ErrNotFound)

	ErrServerBusy = errors.New("сервер занят, достигнут лимит одновременных выгрузок")

	ErrCancelled    = errors.New("передача прервана")
	ErrProcessSpawn = errors.New("не удалось запустить архиватор")
	ErrStreamIO     = errors.New("ошибка ввода-вывода при передаче архива")

	ErrBaseDir = errors.New("не удалось открыть базовую директорию")
)

// IsCancelled сообщает, что передачу оборвал клиент, сервер или сеть.
// Такие ошибки не являются ошибками приложения.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, ErrStreamIO)
}

// IsAborted сообщает, что заголовки уже ушли, а тело ответа не завершено.
func IsAborted(err error) bool {
	return IsCancelled(err) || errors.Is(err, ErrProcessSpawn)
}
