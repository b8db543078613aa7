package loader

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sweep/internal/ir"
)

func parseYAML(path string, data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, loadErrorf(ErrCodeParseFailed, path, "%v", err)
	}

	// An empty file decodes to a zero node.
	if root.Kind == 0 || len(root.Content) == 0 {
		return newDocument(0), nil
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, yamlError(ErrCodeShape, path, top, "top level must be a mapping, got %s", yamlKind(top))
	}

	doc := newDocument(len(top.Content) / 2)
	for i := 0; i+1 < len(top.Content); i += 2 {
		keyNode, valNode := top.Content[i], top.Content[i+1]
		key, err := yamlKey(path, keyNode)
		if err != nil {
			return nil, err
		}
		v, err := yamlValue(path, valNode)
		if err != nil {
			return nil, err
		}
		if err := doc.add(path, key, v); err != nil {
			return nil, withPosition(err, keyNode)
		}
	}
	return doc, nil
}

func yamlValue(path string, n *yaml.Node) (ir.Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return yamlValue(path, n.Alias)
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return ir.Null{}, nil
		}
		return yamlValue(path, n.Content[0])
	case yaml.SequenceNode:
		arr := make(ir.Array, len(n.Content))
		for i, elem := range n.Content {
			v, err := yamlValue(path, elem)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	case yaml.MappingNode:
		obj := make(ir.Object, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, err := yamlKey(path, n.Content[i])
			if err != nil {
				return nil, err
			}
			if _, dup := obj[key]; dup {
				return nil, yamlError(ErrCodeDuplicateKey, path, n.Content[i], "duplicate key %q", key)
			}
			v, err := yamlValue(path, n.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj[key] = v
		}
		return obj, nil
	case yaml.ScalarNode:
		return yamlScalar(path, n)
	default:
		return nil, yamlError(ErrCodeValue, path, n, "unsupported node kind %s", yamlKind(n))
	}
}

func yamlScalar(path string, n *yaml.Node) (ir.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return ir.Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, yamlError(ErrCodeValue, path, n, "%v", err)
		}
		return ir.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, yamlError(ErrCodeValue, path, n, "integer %s out of range", n.Value)
		}
		return ir.Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, yamlError(ErrCodeValue, path, n, "%v", err)
		}
		if _, ok := ir.AsFloat(ir.Float(f)); !ok {
			return nil, yamlError(ErrCodeValue, path, n, "non-finite number %s", n.Value)
		}
		return ir.Float(f), nil
	case "!!str", "!!timestamp":
		return ir.String(n.Value), nil
	default:
		return nil, yamlError(ErrCodeValue, path, n, "unsupported tag %s", n.ShortTag())
	}
}

func yamlKey(path string, n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode || n.ShortTag() == "!!merge" {
		return "", yamlError(ErrCodeValue, path, n, "keys must be plain scalars")
	}
	return n.Value, nil
}

func yamlError(code, path string, n *yaml.Node, format string, args ...any) *LoadError {
	return &LoadError{Code: code, Path: path, Line: n.Line, Column: n.Column, Message: fmt.Sprintf(format, args...)}
}

func withPosition(err error, n *yaml.Node) error {
	var le *LoadError
	if errors.As(err, &le) && le.Line == 0 {
		le.Line, le.Column = n.Line, n.Column
	}
	return err
}

func yamlKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}
