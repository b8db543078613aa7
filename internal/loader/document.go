package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/sweep/internal/ir"
)

// Format identifies a document syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCUE  Format = "cue"
	FormatHCL  Format = "hcl"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".cue":
		return FormatCUE, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", loadErrorf(ErrCodeFormat, path, "unsupported extension %q (want .yaml, .yml, .json, .cue or .hcl)", filepath.Ext(path))
	}
}

// Document is a decoded mapping document.
type Document struct {
	Path   string
	Format Format

	// Keys lists the top-level keys in declaration order.
	Keys []string

	Values ir.Object
}

// Load reads and decodes the document at path.
func Load(path string) (*Document, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, loadErrorf(ErrCodeNotFound, path, "file not found")
	}
	if err != nil {
		return nil, loadErrorf(ErrCodeReadFailed, path, "%v", err)
	}
	return Parse(path, format, data)
}

// Parse decodes data in the given format. path is only used for messages.
func Parse(path string, format Format, data []byte) (*Document, error) {
	var (
		doc *Document
		err error
	)
	switch format {
	case FormatYAML:
		doc, err = parseYAML(path, data)
	case FormatJSON:
		doc, err = parseJSON(path, data)
	case FormatCUE:
		doc, err = parseCUE(path, data)
	case FormatHCL:
		doc, err = parseHCL(path, data)
	default:
		return nil, loadErrorf(ErrCodeFormat, path, "unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	doc.Path = path
	doc.Format = format
	return doc, nil
}

// Get returns the value of a top-level key.
func (d *Document) Get(key string) (ir.Value, bool) {
	v, ok := d.Values[key]
	return v, ok
}

func newDocument(capacity int) *Document {
	return &Document{Keys: make([]string, 0, capacity), Values: make(ir.Object, capacity)}
}

// add appends a top-level key, rejecting duplicates and non-finite numbers.
func (d *Document) add(path, key string, v ir.Value) error {
	if _, dup := d.Values[key]; dup {
		return loadErrorf(ErrCodeDuplicateKey, path, "duplicate top-level key %q", key)
	}
	if err := checkFinite(path, key, v); err != nil {
		return err
	}
	d.Keys = append(d.Keys, key)
	d.Values[key] = v
	return nil
}

// checkFinite rejects NaN and infinities, which cannot be hashed or stored.
func checkFinite(path, key string, v ir.Value) error {
	switch val := v.(type) {
	case ir.Float:
		if _, ok := ir.AsFloat(val); !ok {
			return loadErrorf(ErrCodeValue, path, "%s: non-finite number %v", key, float64(val))
		}
	case ir.Array:
		for i, elem := range val {
			if err := checkFinite(path, fmt.Sprintf("%s[%d]", key, i), elem); err != nil {
				return err
			}
		}
	case ir.Object:
		for _, k := range val.SortedKeys() {
			if err := checkFinite(path, key+"."+k, val[k]); err != nil {
				return err
			}
		}
	}
	return nil
}
