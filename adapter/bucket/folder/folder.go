package folder

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fundprospect/prospectus-pipeline/adapter/bucket"
)

type folder struct {
	path string
}

func New(path string) *folder {
	return &folder{path: path}
}

func (f *folder) GetObject(key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.path, key))
	if os.IsNotExist(err) {
		return nil, bucket.NotFoundErr
	}
	return data, err
}

// PutObject creates missing parent directories so keys may contain slashes
func (f *folder) PutObject(key string, data []byte) error {
	path := filepath.Join(f.path, key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (f *folder) ListObjects(prefix string) ([]string, error) {
	keys := []string{}
	err := filepath.Walk(f.path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.path, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			keys = append(keys, rel)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return keys, nil
	}
	return keys, err
}
