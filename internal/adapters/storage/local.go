package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const metadataSuffix = ".meta.json"

// LocalFileStorage keeps archived files under a base directory
type LocalFileStorage struct {
	basePath string
}

// sidecar is written next to each file
type sidecar struct {
	ContentType string            `json:"content_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewLocalFileStorage creates the base directory if needed
func NewLocalFileStorage(basePath string) (*LocalFileStorage, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, NewStorageError("init", "", err, false)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, NewStorageError("init", "", err, false)
	}

	return &LocalFileStorage{basePath: absPath}, nil
}

// Store writes data through a temp file and a rename so readers never see a
// partial export
func (l *LocalFileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	if err := validateKey(key); err != nil {
		return NewStorageError("store", key, err, false)
	}
	if opts == nil {
		opts = &StoreOptions{}
	}

	filePath := l.filePath(key)
	if !opts.Overwrite {
		if _, err := os.Stat(filePath); err == nil {
			return NewStorageError("store", key, ErrFileAlreadyExists, false)
		}
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return NewStorageError("store", key, err, true)
	}

	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return NewStorageError("store", key, err, true)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		os.Remove(tempPath)
		return NewStorageError("store", key, err, true)
	}

	meta, err := json.Marshal(sidecar{ContentType: opts.ContentType, Metadata: opts.Metadata})
	if err != nil {
		return NewStorageError("store", key, err, false)
	}
	if err := os.WriteFile(filePath+metadataSuffix, meta, 0644); err != nil {
		return NewStorageError("store", key, err, true)
	}

	return nil
}

// Retrieve reads a file
func (l *LocalFileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, NewStorageError("retrieve", key, err, false)
	}

	data, err := os.ReadFile(l.filePath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewStorageError("retrieve", key, ErrFileNotFound, false)
		}
		return nil, NewStorageError("retrieve", key, err, true)
	}
	return data, nil
}

// Delete removes a file and its sidecar
func (l *LocalFileStorage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return NewStorageError("delete", key, err, false)
	}

	filePath := l.filePath(key)
	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewStorageError("delete", key, ErrFileNotFound, false)
		}
		return NewStorageError("delete", key, err, true)
	}
	os.Remove(filePath + metadataSuffix)

	return nil
}

// Exists checks if a file exists at the given key
func (l *LocalFileStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, NewStorageError("exists", key, err, false)
	}

	if _, err := os.Stat(l.filePath(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, NewStorageError("exists", key, err, true)
	}
	return true, nil
}

// List walks the base directory and returns files under prefix
func (l *LocalFileStorage) List(ctx context.Context, prefix string) ([]FileInfo, error) {
	var files []FileInfo

	err := filepath.WalkDir(l.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, metadataSuffix) || strings.HasSuffix(path, ".tmp") {
			return nil
		}

		rel, err := filepath.Rel(l.basePath, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		file := FileInfo{
			Key:          key,
			Size:         info.Size(),
			ContentType:  mime.TypeByExtension(filepath.Ext(key)),
			LastModified: info.ModTime().UTC(),
		}
		if meta, err := l.readSidecar(path); err == nil {
			if meta.ContentType != "" {
				file.ContentType = meta.ContentType
			}
			file.Metadata = meta.Metadata
		}

		files = append(files, file)
		return nil
	})
	if err != nil {
		return nil, NewStorageError("list", prefix, err, true)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files, nil
}

// Close implements FileStorage
func (l *LocalFileStorage) Close() error {
	return nil
}

func (l *LocalFileStorage) filePath(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(key))
}

func (l *LocalFileStorage) readSidecar(path string) (*sidecar, error) {
	data, err := os.ReadFile(path + metadataSuffix)
	if err != nil {
		return nil, err
	}
	var meta sidecar
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// validateKey rejects keys that could escape the base directory
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
