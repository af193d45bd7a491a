package config

import (
	"fmt"
	"io"

	"github.com/watchfire-io/dropdeck/internal/models"
)

// LoadDraft reads a config draft from a YAML, TOML or JSON file. Keys the
// file omits keep the engine defaults from models.NewConfig.
func LoadDraft(path string) (*models.Config, error) {
	draft := models.NewConfig()
	if err := LoadFile(path, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// ReadDraft reads a config draft in the given format from r.
func ReadDraft(r io.Reader, f Format) (*models.Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}
	draft := models.NewConfig()
	if err := Unmarshal(f, data, draft); err != nil {
		return nil, fmt.Errorf("failed to parse %s draft: %w", f, err)
	}
	return draft, nil
}

// WriteDraft encodes cfg in the given format to w.
func WriteDraft(w io.Writer, cfg *models.Config, f Format) error {
	data, err := Marshal(f, cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s draft: %w", f, err)
	}
	_, err = w.Write(data)
	return err
}

// ExportDraft writes cfg to path, choosing the format by extension.
func ExportDraft(path string, cfg *models.Config) error {
	return SaveFile(path, cfg)
}
