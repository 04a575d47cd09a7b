package infra

import (
	"context"

	"github.com/sunr3d/zip-streamer/models"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.2 --name=JobRegistry --output=../../../mocks
type JobRegistry interface {
	SaveJob(ctx context.Context, job *models.ArchiveJob) error
	GetJob(ctx context.Context, id string) (*models.ArchiveJob, error)
	CountActive(ctx context.Context) (int, error)
	ListActive(ctx context.Context) ([]models.ArchiveJob, error)
}
