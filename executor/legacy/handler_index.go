package legacy

import (
	"context"
	"os"

	"github.com/veridoc/pipeline/execution"
)

// handleIndex implements spec.md §4.5.2.
func (e *Executor) handleIndex(req execution.ExecutionContext) execution.ExecutionResult {
	params := req.ExecutorParams

	embeddingID, err := requireString(params, "embedding_instance_id")
	if err != nil {
		return execution.FailureFromError(err)
	}
	vectorDBID, err := requireString(params, "vector_db_instance_id")
	if err != nil {
		return execution.FailureFromError(err)
	}
	x2textID, err := requireString(params, "x2text_instance_id")
	if err != nil {
		return execution.FailureFromError(err)
	}
	filePath, err := requireString(params, "file_path")
	if err != nil {
		return execution.FailureFromError(err)
	}

	chunkSize := optionalInt(params, "chunk_size", 0)
	chunkOverlap := optionalInt(params, "chunk_overlap", 0)

	docID := computeDocID(vectorDBID, embeddingID, x2textID, chunkSize, chunkOverlap, fileContentHash(filePath))

	if chunkSize == 0 {
		// Indexing bypassed; the answer path runs in full-context mode.
		return execution.Success(map[string]any{"doc_id": docID}, nil)
	}

	ctx := context.Background()

	embedding, err := e.factory.Embedding(ctx, embeddingID)
	if err != nil {
		return execution.FailureFromError(execution.Wrap(execution.KindAdapter, "index: embedding adapter construction failed", err))
	}
	vdb, err := e.factory.VectorDB(ctx, vectorDBID, embedding)
	if err != nil {
		return execution.FailureFromError(execution.Wrap(execution.KindAdapter, "index: vector db construction failed", err))
	}
	defer vdb.Close(ctx)

	alreadyIndexed, err := vdb.IsDocumentIndexed(ctx, docID)
	if err != nil {
		return execution.FailureFromError(execution.Wrap(execution.KindAdapter, "index: is_document_indexed failed", err))
	}

	extractedText := optionalString(params, "extracted_text")
	reindex := optionalBool(params, "reindex")
	if err := vdb.PerformIndexing(ctx, docID, extractedText, alreadyIndexed, reindex); err != nil {
		return execution.FailureFromError(execution.Wrap(execution.KindAdapter, "index: perform_indexing failed", err))
	}

	return execution.Success(map[string]any{"doc_id": docID}, nil)
}

// fileContentHash folds filePath's bytes into the doc-id formula. A file
// that cannot be read (already gone, permissions) still yields a stable
// value derived from its path so doc-id computation never fails the
// handler outright; extraction/indexing elsewhere is what surfaces a
// missing-file error to the caller.
func fileContentHash(filePath string) string {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "path:" + filePath
	}
	return sha256Hex(data)
}
