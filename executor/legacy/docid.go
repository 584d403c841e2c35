package legacy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// computeDocID derives the deterministic vector-store document id from the
// identifier quintuple (vector_db, embedding, x2text, chunk_size,
// chunk_overlap) combined with the file's content hash (spec.md §4.5.2 step
// 1, reused unmodified by answer_prompt per §4.5.3 step 2). Two prompts that
// target the same file with the same adapters and chunking always resolve
// to the same doc id, which is what lets indexing be skipped once done.
func computeDocID(vectorDBID, embeddingID, x2textID string, chunkSize, chunkOverlap int, fileHash string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%d|%d|%s", vectorDBID, embeddingID, x2textID, chunkSize, chunkOverlap, fileHash)
	return hex.EncodeToString(h.Sum(nil))
}

// sha256Hex hashes data and returns its hex digest.
func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
