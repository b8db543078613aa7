package loader

import (
	"fmt"
	"math/big"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/roach88/sweep/internal/ir"
)

// parseHCL reads a body of plain attributes:
//
//	exponent = { grid = [1, 2, 4, 8] }
//	offset   = { fixed = 10 }
//
// Blocks are rejected and expressions are evaluated without variables.
func parseHCL(path string, data []byte) (*Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, hclError(ErrCodeParseFailed, path, diags)
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, hclError(ErrCodeShape, path, diags)
	}

	// hcl.Attributes is a map; source position gives declaration order.
	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		ordered = append(ordered, attr)
	}
	slices.SortFunc(ordered, func(a, b *hcl.Attribute) int {
		return a.Range.Start.Byte - b.Range.Start.Byte
	})

	doc := newDocument(len(ordered))
	for _, attr := range ordered {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, hclError(ErrCodeBuildFailed, path, diags)
		}
		v, err := ctyToValue(val)
		if err != nil {
			return nil, &LoadError{
				Code:    ErrCodeValue,
				Path:    path,
				Line:    attr.Range.Start.Line,
				Column:  attr.Range.Start.Column,
				Message: fmt.Sprintf("%s: %v", attr.Name, err),
			}
		}
		if err := doc.add(path, attr.Name, v); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// ctyToValue converts an evaluated cty value. Whole numbers that fit in
// int64 become ir.Int; every other number becomes ir.Float.
func ctyToValue(v cty.Value) (ir.Value, error) {
	if v.IsNull() {
		return ir.Null{}, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return ir.String(v.AsString()), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return ir.Int(i), nil
			}
		}
		f, _ := bf.Float64()
		return ir.Float(f), nil

	case ty == cty.Bool:
		return ir.Bool(v.True()), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		arr := make(ir.Array, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			conv, err := ctyToValue(elem)
			if err != nil {
				return nil, err
			}
			arr = append(arr, conv)
		}
		return arr, nil

	case ty.IsObjectType() || ty.IsMapType():
		obj := make(ir.Object, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			conv, err := ctyToValue(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}
			obj[key.AsString()] = conv
		}
		return obj, nil

	default:
		return nil, fmt.Errorf("unsupported type %s", ty.FriendlyName())
	}
}

func hclError(code, path string, diags hcl.Diagnostics) *LoadError {
	le := &LoadError{Code: code, Path: path, Message: diags.Error()}
	for _, d := range diags {
		if d.Severity == hcl.DiagError && d.Subject != nil {
			le.Message = d.Summary
			if d.Detail != "" {
				le.Message += ": " + d.Detail
			}
			le.Line = d.Subject.Start.Line
			le.Column = d.Subject.Start.Column
			break
		}
	}
	return le
}
