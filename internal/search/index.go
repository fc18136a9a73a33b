package search

import (
	"context"

	"github.com/google/uuid"

	"hms-service/internal/domain/heritage"
)

// DefaultResultCap bounds Execute when the caller passes no cap.
// Returning unbounded id sets is unsafe; every execution path enforces
// some cap.
const DefaultResultCap = 10000

// Index is the document index over denormalized resource records. The
// production implementation is Postgres-backed; tests run against an
// in-memory document set through the same query evaluator.
type Index interface {
	// Execute runs a query fragment against documents of the scoped
	// types and returns matching resource ids, capped at limit.
	Execute(ctx context.Context, q *Bool, scope []heritage.ResourceType, limit int) ([]uuid.UUID, error)

	// IndexDocument upserts one denormalized document.
	IndexDocument(ctx context.Context, doc *heritage.Document) error

	// Remove drops a resource from the index.
	Remove(ctx context.Context, resourceID uuid.UUID) error
}
