package service

import (
	"fmt"

	"github.com/google/uuid"
)

// chunkPointID derives a stable UUID for a chunk from its document, page,
// and chunk index. Within one ingest run the ids are collision-free, and a
// retried upsert of the same run replaces its earlier points instead of
// accumulating duplicates. Each run uses a fresh document id, so stale
// points are removed by the force-delete path, not by id reuse.
func chunkPointID(documentID string, page, chunkIndex int) string {
	name := fmt.Sprintf("%s:%d:%d", documentID, page, chunkIndex)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
