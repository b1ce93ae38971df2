package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSON writes v as two-space-indented JSON with a trailing newline.
// Object keys are emitted sorted, so the bytes depend only on the data.
// The file lands via temp+rename: a concurrent reader of the output tree
// never observes a partial write.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		// Failing to marshal our own data is a bug, not an I/O hiccup.
		return fmt.Errorf("export: encoding %s: %w", path, err)
	}
	data = append(data, '\n')
	return writeFile(path, data)
}

// WriteCanonical re-encodes a raw API payload into the canonical form used
// by WriteJSON. Decoding through `any` keeps every field the API sent while
// normalizing key order and whitespace.
func WriteCanonical(path string, payload json.RawMessage) error {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return fmt.Errorf("export: invalid payload for %s: %w", path, err)
	}
	return WriteJSON(path, v)
}

// WriteRaw writes an already-serialized artifact with the same atomic
// whole-file replacement as WriteJSON.
func WriteRaw(path string, data []byte) error {
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: writing %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("export: writing %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("export: writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("export: writing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("export: writing %s: %w", path, err)
	}
	return nil
}

// ReadJSON decodes an already-exported artifact into out.
func ReadJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("export: reading %s: %w", path, err)
	}
	return nil
}
