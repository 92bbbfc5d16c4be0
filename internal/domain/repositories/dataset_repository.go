package repositories

import (
	"context"
	"encoding/json"

	"agency-proxy.backend/internal/domain/entities"
)

// DatasetStore serves the locally stored snapshot of the agencies directory
type DatasetStore interface {
	// Agencies returns every parsed record of the current snapshot.
	Agencies(ctx context.Context) ([]*entities.Agency, error)
	// Raw returns the snapshot document as stored.
	Raw(ctx context.Context) (json.RawMessage, error)
	// Replace atomically swaps the snapshot for doc.
	Replace(ctx context.Context, doc []byte) (int, error)
	Status() entities.DatasetStatus
}
