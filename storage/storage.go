// Package storage abstracts where evidence blobs live. Uploads happen
// directly from the client to the store (signed direct upload); the API only
// references blobs by path and removes them when a report is deleted.
package storage

import "context"

// EvidenceStore removes stored evidence blobs. Delete is best-effort from the
// caller's point of view: failures are logged by the caller and never block
// record deletion.
type EvidenceStore interface {
	Delete(ctx context.Context, path string) error
}
