package canonical

import (
	"reflect"
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"
)

type field struct {
	name      string
	index     []int
	omitEmpty bool
}

var fieldCache sync.Map // map[reflect.Type][]field

// typeFields lists the serializable fields of a struct type: exported fields
// under their json tag name, with untagged embedded structs flattened. A name
// declared closer to the outer struct shadows deeper ones.
func typeFields(t reflect.Type) []field {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]field)
	}

	fields := collectFields(t, nil, map[string]bool{}, map[reflect.Type]bool{})
	actual, _ := fieldCache.LoadOrStore(t, fields)
	return actual.([]field)
}

func collectFields(t reflect.Type, prefix []int, taken map[string]bool, visiting map[reflect.Type]bool) []field {
	if visiting[t] {
		return nil
	}
	visiting[t] = true
	defer delete(visiting, t)

	var (
		direct   []field
		embedded []reflect.StructField
	)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				embedded = append(embedded, sf)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if taken[name] {
			continue
		}
		taken[name] = true
		direct = append(direct, field{
			name:      name,
			index:     append(append([]int(nil), prefix...), i),
			omitEmpty: strings.Contains(opts, "omitempty"),
		})
	}

	for _, sf := range embedded {
		ft := sf.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		index := append(append([]int(nil), prefix...), sf.Index...)
		direct = append(direct, collectFields(ft, index, taken, visiting)...)
	}
	return direct
}

func structEntries(rv reflect.Value) entries {
	fields := typeFields(rv.Type())
	ent := entries{
		keys:   make([]string, 0, len(fields)),
		values: make(map[string]any, len(fields)),
	}
	for _, f := range fields {
		fv, err := rv.FieldByIndexErr(f.index)
		if err != nil || !fv.CanInterface() {
			continue
		}
		if f.omitEmpty && isEmptyValue(fv) {
			continue
		}
		ent.keys = append(ent.keys, f.name)
		ent.values[f.name] = fv.Interface()
	}
	return ent
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

// compareCodeUnits orders strings by UTF-16 code units, so supplementary
// characters sort below U+E000..U+FFFF as they do in JavaScript engines.
func compareCodeUnits(a, b string) int {
	origA, origB := a, b
	for a != "" && b != "" {
		ra, sa := utf8.DecodeRuneInString(a)
		rb, sb := utf8.DecodeRuneInString(b)
		if ra != rb {
			if (ra >= 0x10000) == (rb >= 0x10000) {
				return int(ra) - int(rb)
			}
			return firstUnit(ra) - firstUnit(rb)
		}
		a, b = a[sa:], b[sb:]
	}
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(origA, origB)
}

func firstUnit(r rune) int {
	if r >= 0x10000 {
		hi, _ := utf16.EncodeRune(r)
		return int(hi)
	}
	return int(r)
}
