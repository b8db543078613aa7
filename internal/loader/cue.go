package loader

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/sweep/internal/ir"
)

// parseCUE evaluates a single CUE file. The result must be concrete: a
// search space written in CUE may use constraints and defaults, but every
// field has to resolve to data.
func parseCUE(path string, data []byte) (*Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, cueError(ErrCodeParseFailed, path, err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(ErrCodeBuildFailed, path, err)
	}
	if v.Kind() != cue.StructKind {
		return nil, loadErrorf(ErrCodeShape, path, "top level must be a struct, got %v", v.Kind())
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, cueError(ErrCodeBuildFailed, path, err)
	}
	doc := newDocument(8)
	for iter.Next() {
		val, err := cueValue(path, iter.Value())
		if err != nil {
			return nil, err
		}
		if err := doc.add(path, iter.Label(), val); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func cueValue(path string, v cue.Value) (ir.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, cueError(ErrCodeBuildFailed, path, err)
		}
		return ir.Bool(b), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, cueError(ErrCodeValue, path, err)
		}
		return ir.Int(i), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, cueError(ErrCodeValue, path, err)
		}
		return ir.Float(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, cueError(ErrCodeBuildFailed, path, err)
		}
		return ir.String(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, cueError(ErrCodeBuildFailed, path, err)
		}
		arr := ir.Array{}
		for iter.Next() {
			elem, err := cueValue(path, iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, cueError(ErrCodeBuildFailed, path, err)
		}
		obj := ir.Object{}
		for iter.Next() {
			elem, err := cueValue(path, iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	default:
		pos := v.Pos()
		return nil, &LoadError{
			Code:    ErrCodeValue,
			Path:    path,
			Line:    pos.Line(),
			Column:  pos.Column(),
			Message: fmt.Sprintf("unsupported CUE kind %v", v.Kind()),
		}
	}
}

// cueError keeps the position of the first CUE error, if it has one.
func cueError(code, path string, err error) *LoadError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return loadErrorf(code, path, "%v", err)
	}
	first := errs[0]
	le := &LoadError{Code: code, Path: path, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 && positions[0].IsValid() {
		le.Line = positions[0].Line()
		le.Column = positions[0].Column()
	}
	return le
}
