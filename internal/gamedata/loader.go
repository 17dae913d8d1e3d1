package gamedata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

// tableExtensions lists the formats a table may be authored in, in lookup order.
var tableExtensions = []string{".json", ".yaml", ".yml"}

// Load reads and decodes a table from the embedded filesystem.
func Load[T any](filename string) (T, error) {
	return LoadFS[T](dataFS, filename)
}

// LoadFS reads and decodes a table from fsys. The decoder is picked from the
// file extension: .json uses encoding/json, .yaml and .yml use yaml.v3.
func LoadFS[T any](fsys fs.FS, filename string) (T, error) {
	var result T

	content, err := fs.ReadFile(fsys, filename)
	if err != nil {
		return result, fmt.Errorf("failed to read table %s: %w", filename, err)
	}

	switch path.Ext(filename) {
	case ".json":
		err = json.Unmarshal(content, &result)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &result)
	default:
		return result, fmt.Errorf("unsupported table format %q", filename)
	}
	if err != nil {
		return result, fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	return result, nil
}

// MustLoad reads and decodes an embedded table, panicking on error.
// Use this for data that must be present for the engine to function.
func MustLoad[T any](filename string) T {
	result, err := Load[T](filename)
	if err != nil {
		panic(err)
	}
	return result
}

// loadNamed finds base.<ext> in dir for the first supported extension and
// decodes it.
func loadNamed[T any](fsys fs.FS, dir, base string) (T, error) {
	for _, ext := range tableExtensions {
		name := path.Join(dir, base+ext)
		if _, err := fs.Stat(fsys, name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			var zero T
			return zero, fmt.Errorf("stat %s: %w", name, err)
		}
		return LoadFS[T](fsys, name)
	}
	var zero T
	return zero, fmt.Errorf("table %q not found in %q: %w", base, dir, fs.ErrNotExist)
}
