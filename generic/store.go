/*
store.go - Persistence interface for the stay ledger

PURPOSE:
  Defines the interface between the reporting layer and the database.
  The engine itself never touches a store: callers load a snapshot of
  stays and pass it by value into the counting functions.

KEY INTERFACES:
  StayStore:  Stay persistence (append, list, delete)

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

EXAMPLE:
  store := sqlite.New("./data/presence.db")
  err := store.AppendStay(ctx, stay)
  stays, err := store.ListStays(ctx)
  count := presence.DaysPresent(stays, "GB", start, end)

SEE ALSO:
  - store/sqlite/sqlite.go: Concrete implementation
*/
package generic

import "context"

// =============================================================================
// STAY STORE - Interface for stay persistence
// =============================================================================

// StayStore persists the stay ledger.
type StayStore interface {
	// AppendStay persists a stay. The ID is assigned if empty and returned
	// in the stored record.
	AppendStay(ctx context.Context, stay Stay) (Stay, error)

	// ListStays returns all stays ordered by Entry.
	ListStays(ctx context.Context) ([]Stay, error)

	// StaysFor returns the stays of one country ordered by Entry.
	StaysFor(ctx context.Context, country CountryCode) ([]Stay, error)

	// DeleteStay removes a stay. Returns ErrStayNotFound if absent.
	DeleteStay(ctx context.Context, id string) error
}
