package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileStorage writes audio files under a base directory. Keys may contain
// slashes ({userID}/{episodeID}.mp3); intermediate directories are created.
type FileStorage struct {
	Dir string
}

func (f FileStorage) Store(ctx context.Context, key string, data []byte) (string, error) {
	path := filepath.Join(f.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	return path, nil
}
