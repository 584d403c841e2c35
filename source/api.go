package source

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/google/uuid"
)

// Upload is one blob arriving through the API connector's upload batch
// (spec.md §4.9 "API connector").
type Upload struct {
	FileName string
	Size     int64
	Content  io.Reader
}

// BlobStorer streams an upload's bytes into the API storage path while
// computing its content hash in the same pass, returning the storage path
// the file was written to.
type BlobStorer interface {
	Store(ctx context.Context, fileName string, content io.Reader) (storedPath string, sha256Hex string, err error)
}

// AllowedMimeTypes is the set of MIME types the API connector will ingest
// normally; anything else is recorded as a synthetic, already-executed
// record rather than rejected outright (spec.md §4.9 step 1).
var AllowedMimeTypes = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,
	"text/csv":        true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"image/png":  true,
	"image/jpeg": true,
	"image/tiff": true,
}

// APIConnector implements the API sub-path of §4.9: uploaded blobs are
// streamed through a chunked content hash, deduplicated within the upload
// batch, and checked against file history.
type APIConnector struct {
	Storage BlobStorer
	History HistoryStore
}

// ListFilesFromSource ingests one upload batch and returns the accepted
// FileHash records keyed by storage path (spec.md §4.9 "API connector").
func (c *APIConnector) ListFilesFromSource(ctx context.Context, workflowID string, useFileHistory bool, uploads []Upload) (map[string]FileHash, int, error) {
	seen := newSeenGuard()
	hist := historyGuard{store: c.History, enabled: useFileHistory}

	result := map[string]FileHash{}
	fileNumber := 0
	seenHashes := map[string]bool{}

	for _, up := range uploads {
		mimeType := mime.TypeByExtension(filepath.Ext(up.FileName))

		if !AllowedMimeTypes[mimeType] {
			// Unrecognized type: account for it without ingesting
			// (spec.md §4.9 API connector step 1).
			fileNumber++
			fh := FileHash{
				FilePath:             up.FileName,
				FileName:             up.FileName,
				FileSize:             up.Size,
				MimeType:             mimeType,
				FileHash:             "temp-hash-" + uuid.NewString(),
				SourceConnectionType: SourceConnectionAPI,
				FileNumber:           fileNumber,
				IsExecuted:           true,
			}
			if !seen.Accept(fh.FilePath, fh.FileName) {
				continue
			}
			result[fh.FilePath] = fh
			continue
		}

		if c.Storage == nil {
			return nil, 0, fmt.Errorf("source: no BlobStorer configured for API uploads")
		}
		storedPath, hash, err := c.Storage.Store(ctx, up.FileName, up.Content)
		if err != nil {
			return nil, 0, fmt.Errorf("store upload %s: %w", up.FileName, err)
		}

		if !seen.Accept(storedPath, up.FileName) {
			continue
		}
		if seenHashes[hash] {
			// Same content hash already ingested earlier in this batch
			// (spec.md §4.9 API connector step 3).
			continue
		}
		seenHashes[hash] = true

		skip, err := hist.ShouldSkip(ctx, workflowID, hash, storedPath)
		if err != nil {
			return nil, 0, err
		}

		fileNumber++
		result[storedPath] = FileHash{
			FilePath:             storedPath,
			FileName:             up.FileName,
			FileSize:             up.Size,
			MimeType:             mimeType,
			FileHash:             hash,
			SourceConnectionType: SourceConnectionAPI,
			FileNumber:           fileNumber,
			IsExecuted:           skip,
		}
	}
	return result, len(result), nil
}
