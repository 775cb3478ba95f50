/*
docstore.go - Persistence contract for path-addressed documents

PURPOSE:
  Defines the interface between the domain logic and the document store.
  A loan and all of its nested records (skip requests, ceiling override,
  EMI payments) live in ONE document under a per-loan path, so every status
  transition is a single-document atomic write.

PATH SCHEME:
  loans/{loanID}          The loan document (nested month-keyed maps inside)
  Paths are opaque to this package; domain packages own the layout.

THE TRANSACTION PRIMITIVE:
  Transaction(path, fn) is the only way to mutate existing state. It reads
  the current document, applies fn, and writes the result as one atomic unit.
  Implementations guarantee that no other write to the same path interleaves,
  which is what turns the approval engine's status check into a genuine
  compare-and-swap rather than a read-then-write pair.

  If fn returns an error, nothing is written and the error is propagated
  unchanged. The engine never retries; the caller decides.

IMPLEMENTATIONS:
  - store/sqlite: production store, one SQL transaction per call
  - generic/docstore: in-memory, per-path serialization (tests/dev)

SEE ALSO:
  - approval.go: Resolve, designed to run inside Transaction
  - store/sqlite/sqlite.go: Production implementation
*/
package generic

import "context"

// DocStore is a path-addressed document store. Documents are opaque JSON
// blobs; all invariants live in the domain packages that encode them.
type DocStore interface {
	// Create writes a new document. Fails with ErrAlreadyExists if the path
	// is occupied.
	Create(ctx context.Context, path string, data []byte) error

	// Read returns the document at path, or ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)

	// Update replaces the document at path, or ErrNotFound.
	// Prefer Transaction for any write whose correctness depends on the
	// previously stored state.
	Update(ctx context.Context, path string, data []byte) error

	// Transaction atomically applies fn to the document at path.
	// fn receives the current bytes and returns the replacement; if it
	// returns an error the document is left untouched. Fails with
	// ErrNotFound if no document exists at path.
	Transaction(ctx context.Context, path string, fn func(current []byte) ([]byte, error)) error

	// List returns all documents whose path starts with prefix, keyed by
	// full path. Read-only; no ordering guarantee.
	List(ctx context.Context, prefix string) (map[string][]byte, error)
}
