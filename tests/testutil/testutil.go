// Package testutil provides helpers shared by the ledger's integration suites.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewTestUUID returns a UUID derived from seed, stable across runs
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed))
}

// TestTenantID returns the tenant used by single-tenant scenarios
func TestTenantID() uuid.UUID {
	return NewTestUUID("test-tenant")
}

// TestActorID returns the operator recorded on manual actions
func TestActorID() uuid.UUID {
	return NewTestUUID("test-actor")
}

// ContextWithTimeout returns a context cancelled when the test ends or timeout passes
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// AssertEventually asserts that condition becomes true within timeout
func AssertEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...any) bool {
	t.Helper()
	return assert.Eventually(t, condition, timeout, interval, msgAndArgs...)
}

// RequireEventually is AssertEventually that stops the test on failure
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...any) {
	t.Helper()
	require.Eventually(t, condition, timeout, interval, msgAndArgs...)
}
