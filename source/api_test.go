package source

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlobStorer struct{ calls int }

func (s *fakeBlobStorer) Store(_ context.Context, fileName string, content io.Reader) (string, string, error) {
	s.calls++
	hash, err := HashReader(content)
	if err != nil {
		return "", "", err
	}
	return "stored/" + fileName, hash, nil
}

func TestAPIConnector_UnsupportedMimeBecomesSyntheticExecuted(t *testing.T) {
	c := &APIConnector{Storage: &fakeBlobStorer{}}
	files, count, err := c.ListFilesFromSource(context.Background(), "wf-1", false, []Upload{
		{FileName: "payload.bin", Size: 4, Content: strings.NewReader("data")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	fh := files["payload.bin"]
	assert.True(t, fh.IsExecuted)
	assert.True(t, strings.HasPrefix(fh.FileHash, "temp-hash-"))
}

func TestAPIConnector_DedupsIdenticalContentWithinBatch(t *testing.T) {
	storer := &fakeBlobStorer{}
	c := &APIConnector{Storage: storer}
	files, count, err := c.ListFilesFromSource(context.Background(), "wf-1", false, []Upload{
		{FileName: "a.pdf", Size: 5, Content: strings.NewReader("same-")},
		{FileName: "b.pdf", Size: 5, Content: strings.NewReader("same-")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, files, 1)
}

func TestAPIConnector_StreamsAndHashesEachUpload(t *testing.T) {
	storer := &fakeBlobStorer{}
	c := &APIConnector{Storage: storer}
	_, count, err := c.ListFilesFromSource(context.Background(), "wf-1", false, []Upload{
		{FileName: "a.pdf", Size: 5, Content: strings.NewReader("one..")},
		{FileName: "b.pdf", Size: 5, Content: strings.NewReader("two..")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, storer.calls)
}
