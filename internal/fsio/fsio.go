// Package fsio provides the file I/O layer shared by every store: tolerant
// reads that treat missing files as empty, and atomic writes that go through
// a locked temp file followed by a rename.
package fsio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// ReadText reads a text file, returning "" if it does not exist.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadJSON decodes path into v. Missing or blank files leave v unchanged.
func ReadJSON(path string, v any) error {
	text, err := ReadText(path)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// ReadYAML decodes path into v. Missing or blank files leave v unchanged.
func ReadYAML(path string, v any) error {
	text, err := ReadText(path)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if err := yaml.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// WriteTextAtomic writes content through a locked temp file and rename.
func WriteTextAtomic(path, content string) error {
	return atomicWrite(path, content, ".txt")
}

// WriteJSONAtomic writes v as indented JSON with a trailing newline.
func WriteJSONAtomic(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return atomicWrite(path, buf.String(), ".json")
}

// WriteYAMLAtomic writes v as block-style YAML with two-space indent.
func WriteYAMLAtomic(path string, v any) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		enc.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return atomicWrite(path, buf.String(), ".yaml")
}

// atomicWrite creates the parent directory, writes content to an flock-held
// temp file in it, fsyncs, and renames over path. The temp file is removed
// on any failure.
func atomicWrite(path, content, suffix string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp_*"+suffix)
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	lock := flock.New(tmpName)

	fail := func(err error) error {
		lock.Unlock()
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if err := lock.Lock(); err != nil {
		return fail(fmt.Errorf("lock %s: %w", tmpName, err))
	}
	if _, err := tmp.WriteString(content); err != nil {
		return fail(fmt.Errorf("write %s: %w", tmpName, err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("sync %s: %w", tmpName, err))
	}
	if err := lock.Unlock(); err != nil {
		return fail(fmt.Errorf("unlock %s: %w", tmpName, err))
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fail(fmt.Errorf("rename to %s: %w", path, err))
	}
	return nil
}
