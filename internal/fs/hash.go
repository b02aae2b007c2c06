package fs

import (
	"encoding/hex"
	"hash"
	"io"
	"os"

	"go.uber.org/zap"
	"lukechampine.com/blake3"
)

// Hash returns the hex-encoded blake3 digest of the file at path.
func Hash(logger *zap.Logger, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("Cannot close file", zap.String("path", path), zap.Error(err))
		}
	}()

	return HashReader(f)
}

func HashReader(r io.Reader) (string, error) {
	h := NewHasher()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}

	return Sum(h), nil
}

// NewHasher returns the content hash used to recognize media already in the library.
func NewHasher() hash.Hash {
	return blake3.New(32, nil)
}

func Sum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}
