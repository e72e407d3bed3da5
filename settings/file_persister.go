/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FilePersister keeps durable settings in a YAML file.
// The file is rewritten atomically (temp file + rename) on every save.
// Values are read back with the types encoding/json decodes them to (numbers are float64),
// the same as DynamoDBPersister returns and the HTTP API writes.
type FilePersister struct {
	path string

	mu     sync.Mutex
	loaded bool
	values map[string]any
}

var _ Persister = (*FilePersister)(nil)

// NewFilePersister creates a new FilePersister for the file at path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Load reads all values from the file. A missing file means no values.
func (p *FilePersister) Load(ctx context.Context) (map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.readLocked(); err != nil {
		return nil, err
	}
	res := make(map[string]any, len(p.values))
	for k, v := range p.values {
		res[k] = v
	}
	return res, nil
}

// Save merges values into the file.
func (p *FilePersister) Save(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		if err := p.readLocked(); err != nil {
			return err
		}
	}
	merged := make(map[string]any, len(p.values)+len(values))
	for k, v := range p.values {
		merged[k] = v
	}
	for k, v := range values {
		merged[k] = v
	}

	data, err := yaml.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err = writeFileAtomically(p.path, data); err != nil {
		return err
	}
	p.values = merged
	return nil
}

func (p *FilePersister) readLocked() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.values, p.loaded = map[string]any{}, true
			return nil
		}
		return fmt.Errorf("read settings file: %w", err)
	}
	values := map[string]any{}
	if err = yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse settings file %s: %w", p.path, err)
	}
	for k, v := range values {
		values[k] = toJSONValue(v)
	}
	p.values, p.loaded = values, true
	return nil
}

// toJSONValue converts a value decoded by yaml.v3 into the form encoding/json would produce for it.
func toJSONValue(v any) any {
	switch tv := v.(type) {
	case int:
		return float64(tv)
	case int64:
		return float64(tv)
	case uint64:
		return float64(tv)
	case []any:
		for i := range tv {
			tv[i] = toJSONValue(tv[i])
		}
		return tv
	case map[string]any:
		for k, e := range tv {
			tv[k] = toJSONValue(e)
		}
		return tv
	case map[any]any:
		m := make(map[string]any, len(tv))
		for k, e := range tv {
			m[fmt.Sprint(k)] = toJSONValue(e)
		}
		return m
	}
	return v
}

func writeFileAtomically(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp settings file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp settings file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp settings file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}
