// Package catalog loads the engine → User-Agent mapping from JSON or YAML
// files and normalizes it into a domain.Catalog.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogzak/search-engine-ua-checker/internal/domain"
)

var (
	ErrNotFound  = errors.New("user-agent file not found")
	ErrMalformed = errors.New("malformed user-agent file")
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const defaultLabel = "default"

// FormatFor picks the decoder from the file extension. Anything that is not
// .yaml or .yml is read as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func Load(path string) (*domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cat, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes a catalog document. The top level must be an object keyed by
// engine name.
func Parse(data []byte, format Format) (*domain.Catalog, error) {
	var (
		root node
		err  error
	)

	switch format {
	case FormatYAML:
		root, err = decodeYAML(data)
	default:
		root, err = decodeJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if root.kind != kindObject {
		return nil, fmt.Errorf("%w: top level must be an object of engines", ErrMalformed)
	}

	cat := domain.NewCatalog()
	for i, engine := range root.keys {
		cat.Set(engine, normalize(root.values[i]))
	}
	return cat, nil
}

// normalize converts one engine entry into ordered (label, user-agent) pairs.
func normalize(n node) [][2]string {
	switch n.kind {
	case kindObject:
		pairs := make([][2]string, 0, len(n.keys))
		for i, label := range n.keys {
			if ua, ok := n.values[i].text(); ok {
				pairs = append(pairs, [2]string{label, ua})
			}
		}
		return pairs
	case kindList:
		pairs := make([][2]string, 0, len(n.items))
		for _, item := range n.items {
			if item.kind == kindObject {
				pairs = append(pairs, normalize(item)...)
				continue
			}
			if ua, ok := item.text(); ok {
				pairs = append(pairs, [2]string{strconv.Itoa(len(pairs) + 1), ua})
			}
		}
		return pairs
	case kindString:
		return [][2]string{{defaultLabel, n.str}}
	default:
		return nil
	}
}
