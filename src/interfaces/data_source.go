package interfaces

import (
	"context"

	"series-canon/src/models"
)

// -----------------------------------------------------------------------------
// IExtractSource yields raw extracts for one configured source.
// -----------------------------------------------------------------------------

type IExtractSource interface {

	// Name returns the source id the extracts belong to
	Name() string

	// -----------------------------------------------------------------------------

	// Pending lists the extracts not yet consumed, oldest first.
	Pending(ctx context.Context) ([]models.MRawExtract, error)

	// -----------------------------------------------------------------------------

	// Ack marks an extract as consumed so it is not returned again.
	Ack(extract models.MRawExtract) error
}
