package files

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"review_sync/internal/domain"
)

func LoadBusinesses(path string) ([]domain.Business, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read business config: %w", err)
	}
	var out []domain.Business
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse business config %s: %w", path, err)
	}
	return out, nil
}

// SaveBusinesses overwrites path with the pretty-printed list. The write
// goes through a temp file so a crash never leaves half a config behind.
func SaveBusinesses(path string, list []domain.Business) error {
	b, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".businesses-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
