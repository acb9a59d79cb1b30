package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smallbiznis/pizzaledger/internal/config"
)

// FSSink writes archives below a local directory.
type FSSink struct {
	root string
}

func NewFSSink(root string) (*FSSink, error) {
	if root == "" {
		root = "exports"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FSSink{root: root}, nil
}

func (s *FSSink) Driver() string { return config.ArchiveDriverFS }

func (s *FSSink) Put(ctx context.Context, key, _ string, body []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(s.root, filepath.FromSlash(clean))
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("archive %s already exists", clean)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}
	return dest, nil
}
