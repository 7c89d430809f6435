package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rcliao/quotesync/internal/model"
)

// JSONFilePersister keeps the replica in a single JSON array file using the
// export format.
type JSONFilePersister struct {
	path string
}

// NewJSONFilePersister returns a persister for path. The file is created on
// first save.
func NewJSONFilePersister(path string) (*JSONFilePersister, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &JSONFilePersister{path: path}, nil
}

// Path returns the file path.
func (p *JSONFilePersister) Path() string {
	return p.path
}

func (p *JSONFilePersister) LoadAll(ctx context.Context) ([]model.Quote, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}
	return Decode(bytes.NewReader(data), time.Now())
}

// SaveAll writes to a temp file in the same directory and renames it over
// the target.
func (p *JSONFilePersister) SaveAll(ctx context.Context, quotes []model.Quote) error {
	var buf bytes.Buffer
	if err := Export(&buf, quotes); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".quotes-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p.path)
}

func (p *JSONFilePersister) Close() error { return nil }

// settingsPath is the sidecar file holding settings next to the quotes.
func (p *JSONFilePersister) settingsPath() string {
	return p.path + ".settings"
}

func (p *JSONFilePersister) readSettings() (map[string]string, error) {
	settings := map[string]string{}
	data, err := os.ReadFile(p.settingsPath())
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// GetSetting reads key from the settings sidecar.
func (p *JSONFilePersister) GetSetting(ctx context.Context, key string) (string, error) {
	settings, err := p.readSettings()
	if err != nil {
		return "", err
	}
	return settings[key], nil
}

// SetSetting writes key to the settings sidecar. An unreadable sidecar is
// replaced.
func (p *JSONFilePersister) SetSetting(ctx context.Context, key, value string) error {
	settings, err := p.readSettings()
	if err != nil {
		settings = map[string]string{}
	}
	settings[key] = value
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.settingsPath(), data, 0o644)
}
