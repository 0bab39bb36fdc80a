package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/ports/driven"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/logger"
)

// unhealthyThreshold is the number of consecutive failures after which a
// credential is taken out of selection until its next success.
const unhealthyThreshold = 3

// CredentialPool owns the set of interchangeable API keys and tracks their
// health, usage and blocked status. It is the only mutator of credential
// state; every other component reads credentials through the pool.
type CredentialPool struct {
	mu    sync.Mutex
	creds []domain.Credential
}

// NewCredentialPool creates a pool from the configured key list.
// Keys start healthy with zero usage.
func NewCredentialPool(secrets []string) *CredentialPool {
	creds := make([]domain.Credential, len(secrets))
	for i, s := range secrets {
		creds[i] = domain.Credential{
			Index:       i,
			Secret:      s,
			Healthy:     true,
			LastSuccess: time.Now(),
		}
	}
	return &CredentialPool{creds: creds}
}

// Size returns the number of configured credentials.
func (p *CredentialPool) Size() int {
	return len(p.creds)
}

// Credentials returns a snapshot of all credentials in index order.
// The order is stable, which the admission controller's round-robin
// rotation depends on.
func (p *CredentialPool) Credentials() []domain.Credential {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Credential, len(p.creds))
	copy(out, p.creds)
	return out
}

// Credential returns a snapshot of the credential at index.
func (p *CredentialPool) Credential(index int) (domain.Credential, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.creds) {
		return domain.Credential{}, false
	}
	return p.creds[index], true
}

// Eligible reports whether the credential at index may be selected:
// not blocked and currently healthy.
func (p *CredentialPool) Eligible(index int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.creds) {
		return false
	}
	c := p.creds[index]
	return !c.Blocked && c.Healthy
}

// RecordFailure registers a failed call against a credential.
// An organisation/access-restriction error permanently blocks the key.
// Reaching the consecutive-failure threshold marks it unhealthy.
func (p *CredentialPool) RecordFailure(index int, errText string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.creds) {
		return
	}

	c := &p.creds[index]
	c.ErrorCount++
	c.LastError = truncateError(errText)

	if isRestrictionError(errText) {
		c.Blocked = true
		logger.Warn("API key #%d marked as BLOCKED: %s", index+1, c.LastError)
	}

	if c.ErrorCount >= unhealthyThreshold {
		c.Healthy = false
		logger.Warn("API key #%d marked as UNHEALTHY after %d errors", index+1, c.ErrorCount)
	}
}

// RecordSuccess registers a successful call. The credential becomes healthy
// again and its consecutive-error counter resets to zero; sustained
// correctness after a transient blip restores full trust. A success never
// clears a blocked flag.
func (p *CredentialPool) RecordSuccess(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.creds) {
		return
	}

	c := &p.creds[index]
	c.Healthy = true
	c.ErrorCount = 0
	c.LastSuccess = time.Now()
	c.UsageCount++
}

// BestAvailable returns the healthy, unblocked credential with the lowest
// usage count. Used as the least-loaded fallback selection, distinct from
// the admission controller's round-robin. Returns domain.ErrNoCredentials
// when the eligible set is empty; callers must treat that as a hard
// capacity failure.
func (p *CredentialPool) BestAvailable() (domain.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	best := -1
	for i := range p.creds {
		c := p.creds[i]
		if c.Blocked || !c.Healthy {
			continue
		}
		if best < 0 || c.UsageCount < p.creds[best].UsageCount {
			best = i
		}
	}
	if best < 0 {
		return domain.Credential{}, domain.ErrNoCredentials
	}
	return p.creds[best], nil
}

// HealthCheckAll probes every non-blocked credential concurrently with a
// minimal completion request. Outcomes feed back into RecordSuccess and
// RecordFailure. A failed probe never blocks a key by itself; only explicit
// restriction errors do, via RecordFailure's pattern match.
func (p *CredentialPool) HealthCheckAll(ctx context.Context, llm driven.CompletionService) {
	logger.Section("API Key Health Check")

	creds := p.Credentials()
	var wg sync.WaitGroup
	for _, c := range creds {
		if c.Blocked {
			continue
		}
		wg.Add(1)
		go func(c domain.Credential) {
			defer wg.Done()
			if err := llm.Ping(ctx, c.Secret); err != nil {
				p.RecordFailure(c.Index, err.Error())
				logger.Warn("API key #%d failed health check: %v", c.Index+1, err)
				return
			}
			p.RecordSuccess(c.Index)
			logger.Info("API key #%d is healthy", c.Index+1)
		}(c)
	}
	wg.Wait()
}

// Report returns one status row per credential, in index order.
func (p *CredentialPool) Report() []domain.CredentialReport {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.CredentialReport, len(p.creds))
	for i, c := range p.creds {
		out[i] = domain.CredentialReport{
			Index:      c.Index,
			MaskedKey:  c.MaskedSecret(),
			Healthy:    c.Healthy,
			Blocked:    c.Blocked,
			UsageCount: c.UsageCount,
			ErrorCount: c.ErrorCount,
			LastError:  c.LastError,
		}
	}
	return out
}

// isRestrictionError matches provider errors that permanently invalidate a
// key, such as Groq's organization_restricted rejection.
func isRestrictionError(errText string) bool {
	s := strings.ToLower(errText)
	return strings.Contains(s, "organization_restricted") || strings.Contains(s, "restricted")
}

func truncateError(s string) string {
	const max = 160
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
