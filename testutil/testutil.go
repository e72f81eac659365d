// Package testutil provides shared helpers for the package test suites:
// in-memory stores, bounded test contexts, and scripted agents.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rasad8686/agentcore/internal/database"
	"github.com/rasad8686/agentcore/store"
)

// TestContext returns a context bounded to 30s, cancelled on cleanup.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext returns an already-cancelled context.
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// NewTestStore opens a migrated in-memory store.
func NewTestStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := database.Open(database.Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)

	st := store.New(db, nil)
	require.NoError(t, st.AutoMigrate())
	return st
}
