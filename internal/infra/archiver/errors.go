package archiver

import "errors"

var (
	ErrContextDone      = errors.New("отмена контекста")
	ErrArchiverNotFound = errors.New("архиватор не найден")
	ErrStartFailed      = errors.New("не удалось запустить архиватор")
)
