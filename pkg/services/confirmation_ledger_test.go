package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-db/warden/pkg/errors"
)

func newTestLedger(t *testing.T, ttl time.Duration) *confirmationLedger {
	t.Helper()
	ledger := NewConfirmationLedger(ttl, 0, nopLogger{}, nopMetrics{})
	t.Cleanup(ledger.Stop)
	return ledger.(*confirmationLedger)
}

func TestConfirmationLedgerCreateAndConsume(t *testing.T) {
	ledger := newTestLedger(t, 5*time.Minute)

	id := ledger.Create("fp-1")
	assert.True(t, strings.HasPrefix(id, "confirm-"))

	require.NoError(t, ledger.Consume(id, "fp-1"))
}

func TestConfirmationLedgerSingleUse(t *testing.T) {
	ledger := newTestLedger(t, 5*time.Minute)

	id := ledger.Create("fp-1")
	require.NoError(t, ledger.Consume(id, "fp-1"))

	err := ledger.Consume(id, "fp-1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestConfirmationLedgerFingerprintMismatch(t *testing.T) {
	ledger := newTestLedger(t, 5*time.Minute)

	id := ledger.Create("fp-1")
	err := ledger.Consume(id, "fp-other")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidRequest, errors.GetCode(err))

	// A failed consume still burns the token.
	err = ledger.Consume(id, "fp-1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestConfirmationLedgerUnknownID(t *testing.T) {
	ledger := newTestLedger(t, 5*time.Minute)

	err := ledger.Consume("confirm-nope", "fp-1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestConfirmationLedgerExpiry(t *testing.T) {
	ledger := newTestLedger(t, 5*time.Minute)

	current := time.Now()
	ledger.now = func() time.Time { return current }

	id := ledger.Create("fp-1")

	// Just inside the TTL.
	current = current.Add(5*time.Minute - time.Second)
	other := ledger.Create("fp-2")
	require.NoError(t, ledger.Consume(id, "fp-1"))

	// Past the TTL for the second token.
	current = current.Add(5*time.Minute + time.Second)
	err := ledger.Consume(other, "fp-2")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestConfirmationLedgerSweepRemovesExpired(t *testing.T) {
	ledger := newTestLedger(t, time.Minute)

	current := time.Now()
	ledger.now = func() time.Time { return current }

	expired := ledger.Create("fp-old")
	current = current.Add(2 * time.Minute)
	fresh := ledger.Create("fp-new")

	ledger.sweep()

	ledger.mu.Lock()
	_, expiredPresent := ledger.tokens[expired]
	_, freshPresent := ledger.tokens[fresh]
	ledger.mu.Unlock()

	assert.False(t, expiredPresent)
	assert.True(t, freshPresent)
}

func TestConfirmationLedgerDistinctIDs(t *testing.T) {
	ledger := newTestLedger(t, 5*time.Minute)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := ledger.Create("fp")
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
