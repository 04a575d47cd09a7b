package infra

import (
	"context"

	"go.uber.org/zap"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.2 --name=Reporter --output=../../../mocks
type Reporter interface {
	Report(ctx context.Context, err error, fields ...zap.Field)
	Flush()
}
