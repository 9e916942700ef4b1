package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// encodeItems renders items as a 2-space indented JSON array with a trailing
// newline. HTML characters and non-ASCII text are written unescaped.
func encodeItems(items []Item) ([]byte, error) {
	if items == nil {
		items = make([]Item, 0)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeItem renders a single item compactly for database payload columns.
func encodeItem(item Item) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(item); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// decodeItems parses a JSON array of objects, keeping numbers as json.Number.
func decodeItems(data []byte) ([]Item, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var items []Item
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}
	if items == nil {
		items = make([]Item, 0)
	}
	return items, nil
}

// decodeItem parses a single JSON object, keeping numbers as json.Number.
func decodeItem(data []byte) (Item, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var item Item
	if err := dec.Decode(&item); err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("payload is not a JSON object")
	}
	return item, nil
}

// WriteFileAtomic writes data to a temp file beside path and renames it over
// path, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte) error {
	tmpPath, err := writeTemp(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// writeTemp writes data to a new temp file in path's directory and returns
// its name. The caller renames or removes it.
func writeTemp(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return "", writeErr
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return "", closeErr
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	return tmpPath, nil
}
