package execdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSource_WritesBothSourceAndInfile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.WriteSource([]byte("raw bytes")))

	source, ok, err := s.readCachedText(sourceFile)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "raw bytes", source)

	infile, ok, err := s.readCachedText(infileFile)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "raw bytes", infile)
}

func TestReadExtract_MissingIsNotAnError(t *testing.T) {
	s := New(t.TempDir())
	_, ok, err := s.ReadExtract()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteExtract_ThenReadExtract(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.WriteExtract("extracted text"))
	got, ok, err := s.ReadExtract()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "extracted text", got)
}

func TestEnsureMetadata_DoesNotOverwriteExisting(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.EnsureMetadata(map[string]any{"source_name": "a.pdf"}))
	require.NoError(t, s.EnsureMetadata(map[string]any{"source_name": "b.pdf"}))

	doc, err := s.ReadMetadata()
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", doc["source_name"], "an existing METADATA.json must never be overwritten")
}

func TestMergeMetadata_PreservesUnrelatedKeys(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.EnsureMetadata(map[string]any{"source_name": "a.pdf", "organization_id": "org-1"}))
	require.NoError(t, s.MergeMetadata(map[string]any{"whisper_hash": "abc123"}))

	doc, err := s.ReadMetadata()
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", doc["source_name"])
	assert.Equal(t, "org-1", doc["organization_id"])
	assert.Equal(t, "abc123", doc["whisper_hash"])
}

func TestWriteOutputArtifact_WritesStemJSONAndInfile(t *testing.T) {
	outDir := t.TempDir()
	s := New(t.TempDir())
	require.NoError(t, s.WriteOutputArtifact(outDir, "invoice.pdf", map[string]any{"output": map[string]any{"total": 42.0}}))

	infile, ok, err := s.readCachedText(infileFile)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, infile, "total")

	artifact, ok, err := readFileInDir(outDir, "invoice.json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, artifact, "total")
}

func TestStem(t *testing.T) {
	assert.Equal(t, "invoice", Stem("invoice.pdf"))
	assert.Equal(t, "invoice", Stem("/a/b/invoice.pdf"))
	assert.Equal(t, "archive.tar", Stem("archive.tar.gz"))
}

func readFileInDir(dir, name string) (string, bool, error) {
	s := New(dir)
	return s.readCachedText(name)
}
