package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/roach88/sweep/internal/ir"
)

// parseJSON streams the top-level object so key order survives; nested
// objects go through ir.UnmarshalValue and keep no order.
func parseJSON(path string, data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return newDocument(0), nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, loadErrorf(ErrCodeParseFailed, path, "%v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, loadErrorf(ErrCodeShape, path, "top level must be an object")
	}

	doc := newDocument(8)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, loadErrorf(ErrCodeParseFailed, path, "%v", err)
		}
		key := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, loadErrorf(ErrCodeParseFailed, path, "value of %q: %v", key, err)
		}
		v, err := ir.UnmarshalValue(raw)
		if err != nil {
			return nil, loadErrorf(ErrCodeValue, path, "value of %q: %v", key, err)
		}
		if err := doc.add(path, key, v); err != nil {
			return nil, err
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, loadErrorf(ErrCodeParseFailed, path, "%v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, loadErrorf(ErrCodeParseFailed, path, "trailing data after top-level object")
	}
	return doc, nil
}
