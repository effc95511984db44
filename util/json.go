// util/json.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// jsonLocation returns the 1-based line and column of the given byte
// offset in b.
func jsonLocation(b []byte, offset int64) (line, col int) {
	offset = min(max(offset, 0), int64(len(b)))
	prefix := b[:offset]
	line = 1 + bytes.Count(prefix, []byte{'\n'})
	col = 1 + len(prefix) - (bytes.LastIndexByte(prefix, '\n') + 1)
	return
}

// UnmarshalJSONBytes is json.Unmarshal, but syntax and type errors are
// reported with the line and column where they occurred.
func UnmarshalJSONBytes[T any](b []byte, out *T) error {
	err := json.Unmarshal(b, out)

	var serr *json.SyntaxError
	var terr *json.UnmarshalTypeError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &serr):
		line, col := jsonLocation(b, serr.Offset)
		return fmt.Errorf("line %d, column %d: %w", line, col, serr)
	case errors.As(err, &terr):
		line, col := jsonLocation(b, terr.Offset)
		field := terr.Field
		if terr.Struct != "" {
			field = terr.Struct + "." + field
		}
		return fmt.Errorf("line %d, column %d: %s value for %s invalid for type %s", line, col, terr.Value,
			field, terr.Type)
	default:
		return err
	}
}

// CheckJSON reports problems in contents with respect to the type T:
// syntax errors, values of the wrong kind, and object keys that don't
// correspond to a field (which json.Unmarshal silently ignores).
func CheckJSON[T any](contents []byte, e *ErrorLogger) {
	defer e.CheckDepth(e.CurrentDepth())

	var v any
	if err := UnmarshalJSONBytes(contents, &v); err != nil {
		e.Error(err)
		return
	}

	c := jsonChecker{e: e, fields: make(map[reflect.Type]map[string]reflect.Type)}
	c.check(v, reflect.TypeFor[T]())
}

type jsonChecker struct {
	e *ErrorLogger
	// JSON field names to field types, per struct type.
	fields map[reflect.Type]map[string]reflect.Type
}

func (c *jsonChecker) structFields(ty reflect.Type) map[string]reflect.Type {
	if f, ok := c.fields[ty]; ok {
		return f
	}
	f := make(map[string]reflect.Type)
	for _, field := range reflect.VisibleFields(ty) {
		tag, ok := field.Tag.Lookup("json")
		if !ok || !field.IsExported() {
			continue
		}
		if name, _, _ := strings.Cut(tag, ","); name != "-" {
			f[name] = field.Type
		}
	}
	c.fields[ty] = f
	return f
}

func (c *jsonChecker) check(v any, ty reflect.Type) {
	for ty.Kind() == reflect.Pointer {
		ty = ty.Elem()
	}

	switch ty.Kind() {
	case reflect.Array, reflect.Slice:
		items, ok := v.([]any)
		if !ok {
			c.e.ErrorString("expected array, got %s", jsonKind(v))
			return
		}
		for _, item := range items {
			c.check(item, ty.Elem())
		}

	case reflect.Map:
		m, ok := v.(map[string]any)
		if !ok {
			c.e.ErrorString("expected object, got %s", jsonKind(v))
			return
		}
		for _, k := range SortedMapKeys(m) {
			c.e.Push(k)
			c.check(m[k], ty.Elem())
			c.e.Pop()
		}

	case reflect.Struct:
		m, ok := v.(map[string]any)
		if !ok {
			c.e.ErrorString("expected object, got %s", jsonKind(v))
			return
		}
		fields := c.structFields(ty)
		for _, k := range SortedMapKeys(m) {
			fty, ok := fields[k]
			if !ok {
				c.e.ErrorString("The entry %q is not an expected JSON object. Is it misspelled?", k)
				continue
			}
			c.e.Push(k)
			c.check(m[k], fty)
			c.e.Pop()
		}

	case reflect.String:
		if _, ok := v.(string); !ok {
			c.e.ErrorString("expected string, got %s", jsonKind(v))
		}

	case reflect.Bool:
		if _, ok := v.(bool); !ok {
			c.e.ErrorString("expected boolean, got %s", jsonKind(v))
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if _, ok := v.(float64); !ok {
			c.e.ErrorString("expected number, got %s", jsonKind(v))
		}
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
