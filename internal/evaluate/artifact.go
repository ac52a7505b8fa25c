package evaluate

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// ArtifactReader loads rendered artifact content by reference.
type ArtifactReader interface {
	ReadArtifact(ctx context.Context, ref string) (string, error)
}

// FileArtifacts reads artifacts from disk. Relative references resolve
// against Dir.
type FileArtifacts struct {
	Dir string
}

// ReadArtifact reads the file named by ref.
func (f FileArtifacts) ReadArtifact(_ context.Context, ref string) (string, error) {
	if ref == "" {
		return "", errors.New("slide has no artifact")
	}
	path := ref
	if !filepath.IsAbs(path) && f.Dir != "" {
		path = filepath.Join(f.Dir, ref)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading artifact: %w", err)
	}
	return string(data), nil
}

// Digest is the hex BLAKE3-256 digest of artifact content, or "" for empty
// content.
func Digest(content string) string {
	if content == "" {
		return ""
	}
	sum := blake3.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
