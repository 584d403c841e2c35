package source

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkedReader forces HashReader to see many small reads instead of one
// big one, proving the one-pass and multi-pass digests agree
// (spec.md §8.1 "Content-hash stability").
type chunkedReader struct {
	data []byte
	pos  int
	step int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := r.step
	if n > len(p) {
		n = len(p)
	}
	if r.pos+n > len(r.data) {
		n = len(r.data) - r.pos
	}
	copy(p, r.data[r.pos:r.pos+n])
	r.pos += n
	return n, nil
}

func TestHashReader_StableAcrossChunking(t *testing.T) {
	content := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 10000)

	whole, err := HashReader(bytes.NewReader(content))
	require.NoError(t, err)

	chunked, err := HashReader(&chunkedReader{data: content, step: 17})
	require.NoError(t, err)

	assert.Equal(t, whole, chunked)
	assert.Len(t, whole, 64) // hex-encoded SHA-256
}
