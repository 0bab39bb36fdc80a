// Package driving provides interfaces for application entry points (primary/inbound ports).
package driving

import (
	"context"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
)

// QueryService answers a batch of questions against one document.
type QueryService interface {
	// Answer downloads and prepares the document, then answers every
	// question concurrently under a global in-flight bound. The returned
	// slice preserves question order exactly; per-question failures become
	// placeholder answers rather than failing the batch. Only document
	// acquisition failures abort the whole call.
	Answer(ctx context.Context, documentURL string, questions []string) ([]string, error)
}

// PoolReporter exposes credential pool state for operational visibility.
type PoolReporter interface {
	// Report returns one row per configured credential, in index order.
	Report() []domain.CredentialReport

	// HealthCheck probes every non-blocked credential concurrently and
	// feeds the outcomes back into the pool's health tracking.
	HealthCheck(ctx context.Context)
}
