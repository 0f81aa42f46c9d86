package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warden-db/warden/pkg/errors"
)

// confirmationLedger is the in-memory ConfirmationLedger. Tokens are
// single-use and bound to an operation fingerprint; expired entries are
// dropped on access and by a background sweep.
type confirmationLedger struct {
	mu      sync.Mutex
	tokens  map[string]confirmationToken
	ttl     time.Duration
	logger  Logger
	metrics MetricsCollector

	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type confirmationToken struct {
	fingerprint string
	createdAt   time.Time
}

// NewConfirmationLedger creates a ledger and starts its expiry sweep.
// sweepInterval <= 0 disables the background sweep (expiry still applies
// on access).
func NewConfirmationLedger(ttl, sweepInterval time.Duration, logger Logger, metrics MetricsCollector) ConfirmationLedger {
	ctx, cancel := context.WithCancel(context.Background())
	l := &confirmationLedger{
		tokens:  make(map[string]confirmationToken),
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}

	if sweepInterval > 0 {
		l.wg.Add(1)
		go l.sweepRoutine(sweepInterval)
	}

	return l
}

func (l *confirmationLedger) Create(fingerprint string) string {
	id := "confirm-" + uuid.New().String()

	l.mu.Lock()
	l.tokens[id] = confirmationToken{
		fingerprint: fingerprint,
		createdAt:   l.now(),
	}
	pending := len(l.tokens)
	l.mu.Unlock()

	l.metrics.IncrementCounter("confirmations_created_total")
	l.metrics.RecordGauge("confirmations_pending", float64(pending))
	l.logger.Debug("Confirmation token created", "confirmation_id", id)

	return id
}

func (l *confirmationLedger) Consume(id, fingerprint string) error {
	l.mu.Lock()
	token, ok := l.tokens[id]
	if ok {
		// Single use: the token is gone whether or not it matches.
		delete(l.tokens, id)
	}
	pending := len(l.tokens)
	l.mu.Unlock()

	l.metrics.RecordGauge("confirmations_pending", float64(pending))

	if !ok {
		l.metrics.IncrementCounter("confirmations_consume_failures_total", "reason", "not_found")
		return errors.Newf(errors.CodeNotFound, "unknown confirmation id: %s", id)
	}
	if l.now().Sub(token.createdAt) > l.ttl {
		l.metrics.IncrementCounter("confirmations_consume_failures_total", "reason", "expired")
		return errors.Newf(errors.CodeNotFound, "confirmation id expired: %s", id)
	}
	if token.fingerprint != fingerprint {
		l.metrics.IncrementCounter("confirmations_consume_failures_total", "reason", "mismatch")
		return errors.New(errors.CodeInvalidRequest,
			"confirmation id was issued for a different operation")
	}

	l.metrics.IncrementCounter("confirmations_consumed_total")
	l.logger.Debug("Confirmation token consumed", "confirmation_id", id)
	return nil
}

func (l *confirmationLedger) Stop() {
	l.cancel()
	l.wg.Wait()
}

// sweepRoutine periodically removes expired tokens.
func (l *confirmationLedger) sweepRoutine(interval time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *confirmationLedger) sweep() {
	cutoff := l.now().Add(-l.ttl)

	l.mu.Lock()
	var expired int
	for id, token := range l.tokens {
		if token.createdAt.Before(cutoff) {
			delete(l.tokens, id)
			expired++
		}
	}
	pending := len(l.tokens)
	l.mu.Unlock()

	if expired > 0 {
		l.metrics.RecordGauge("confirmations_pending", float64(pending))
		l.logger.Debug("Expired confirmation tokens swept", "count", expired)
	}
}
