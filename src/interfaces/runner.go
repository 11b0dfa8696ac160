package interfaces

import (
	"context"
	"time"

	"series-canon/src/models"
)

// -----------------------------------------------------------------------------
// IExtractRunner pushes one raw extract through the canonicalization engine.
// -----------------------------------------------------------------------------

type IExtractRunner interface {
	RunExtract(ctx context.Context, desc models.MSourceDescriptor, extract models.MRawExtract) (models.MRunReport, error)
	Backfill(ctx context.Context, desc models.MSourceDescriptor, from, to time.Time, extract models.MRawExtract) (models.MRunReport, error)
}
