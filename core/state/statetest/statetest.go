// Package statetest builds throwaway state managers for engine tests.
package statetest

import (
	"testing"

	"curvefoundry/core/state"
	"curvefoundry/storage"
	"curvefoundry/storage/trie"
)

// NewManager returns a state manager over an in-memory trie that is closed
// when the test finishes.
func NewManager(t testing.TB) *state.Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.NewTrie(db, nil)
	if err != nil {
		t.Fatalf("new trie: %v", err)
	}
	return state.NewManager(tr)
}
