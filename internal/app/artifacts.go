package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperifyio/filingharvest/internal/record"
)

// artifactPath joins a relative artifact name onto the output directory.
func (c Config) artifactPath(name string) string {
	if filepath.IsAbs(name) || c.OutputDir == "" {
		return name
	}
	return filepath.Join(c.OutputDir, name)
}

// DocumentFile is where the fetched filing is stored.
func (c Config) DocumentFile() string { return c.artifactPath(c.DocumentPath) }

// RawJSONFile is where the extraction record is written.
func (c Config) RawJSONFile() string { return c.artifactPath(c.RawJSONPath) }

// CleanedJSONFile is where the normalized record is written.
func (c Config) CleanedJSONFile() string { return c.artifactPath(c.CleanedJSONPath) }

// writeFileAtomic replaces path with data through a temp file in the same
// directory, so readers never see a partial artifact.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// writeRecord writes rec as four-space indented JSON.
func writeRecord(path string, rec *record.Record) error {
	b, err := rec.MarshalIndent()
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return writeFileAtomic(path, append(b, '\n'))
}

// readRecord decodes the JSON object stored at path.
func readRecord(path string) (*record.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rec, err := record.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return rec, nil
}
