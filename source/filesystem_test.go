package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct{ completed map[string]bool }

func (h *fakeHistory) IsCompleted(_ context.Context, workflowID, cacheKey, filePath string) (bool, error) {
	return h.completed[workflowID+"|"+cacheKey+"|"+filePath], nil
}

type fakeInFlight struct{ claimed map[string]bool }

func (f *fakeInFlight) InFlight(_ context.Context, q InFlightQuery) (bool, error) {
	return f.claimed[q.FilePath], nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFilesystemConnector_ListsAndFilters(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "pdf-bytes")
	writeFile(t, filepath.Join(root, "b.exe"), "unsupported")
	writeFile(t, filepath.Join(root, "sub", "c.txt"), "text-bytes")

	c := &FilesystemConnector{}
	files, count, err := c.ListFilesFromSource(context.Background(), ListOptions{
		FoldersToProcess:      []string{root},
		ProcessSubDirectories: true,
		ExtensionSets:         []FileExtensionSet{ExtensionSetPDFDocuments, ExtensionSetTextDocuments},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	_, hasPDF := files[filepath.Join(root, "a.pdf")]
	_, hasTxt := files[filepath.Join(root, "sub", "c.txt")]
	assert.True(t, hasPDF)
	assert.True(t, hasTxt)
	_, hasExe := files[filepath.Join(root, "b.exe")]
	assert.False(t, hasExe)
}

func TestFilesystemConnector_NoSubdirectoriesStaysAtDepthOne(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.pdf"), "x")
	writeFile(t, filepath.Join(root, "sub", "nested.pdf"), "x")

	c := &FilesystemConnector{}
	files, count, err := c.ListFilesFromSource(context.Background(), ListOptions{
		FoldersToProcess:      []string{root},
		ProcessSubDirectories: false,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	_, ok := files[filepath.Join(root, "top.pdf")]
	assert.True(t, ok)
}

func TestFilesystemConnector_InFlightGuardSkipsDuplicate(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "dup.pdf")
	writeFile(t, target, "x")

	c := &FilesystemConnector{InFlight: &fakeInFlight{claimed: map[string]bool{target: true}}}
	files, count, err := c.ListFilesFromSource(context.Background(), ListOptions{
		FoldersToProcess: []string{root},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Empty(t, files)
}

func TestFilesystemConnector_MaxFilesLimit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "x")
	writeFile(t, filepath.Join(root, "b.pdf"), "x")
	writeFile(t, filepath.Join(root, "c.pdf"), "x")

	c := &FilesystemConnector{}
	_, count, err := c.ListFilesFromSource(context.Background(), ListOptions{
		FoldersToProcess: []string{root},
		MaxFiles:         2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFilesystemConnector_NoTwoRecordsShareFilePathOrFileName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "x")
	writeFile(t, filepath.Join(root, "sub", "a.pdf"), "y")

	c := &FilesystemConnector{}
	files, count, err := c.ListFilesFromSource(context.Background(), ListOptions{
		FoldersToProcess:      []string{root},
		ProcessSubDirectories: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	names := map[string]bool{}
	for _, fh := range files {
		assert.False(t, names[fh.FileName], "duplicate FileName in listing")
		names[fh.FileName] = true
	}
}
