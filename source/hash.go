package source

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// chunkSize is the fixed read buffer for content hashing: the whole file is
// never buffered in memory (spec.md §4.9 "Content hashing").
const chunkSize = 4 * 1024 * 1024

// HashReader computes the SHA-256 content hash of r, reading in fixed-size
// chunks regardless of the underlying file size. Running it over two chunked
// passes of the same bytes yields the same digest (spec.md §8.1
// "Content-hash stability").
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := h.Write(buf[:n]); werr != nil {
				return "", werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
