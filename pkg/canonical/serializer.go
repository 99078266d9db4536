package canonical

import (
	"encoding"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// ToCanonicalValue is implemented by values that want to be serialized as a
// different value. The returned value is classified from scratch; it is not
// converted a second time.
type ToCanonicalValue interface {
	CanonicalValue() any
}

type undefinedValue struct{}

// Undefined is the absent value. It is dropped from mappings, rendered as null
// inside sequences and yields an empty result at the top level.
var Undefined = undefinedValue{}

// Serializer turns value graphs into canonical text. It is immutable and safe
// for concurrent use.
type Serializer struct {
	maxDepth    int
	maxBreadth  int
	sortKeys    bool
	compare     func(a, b string) int
	circular    CircularMode
	placeholder string
	bigInt      bool
	strict      bool
	indent      string
	filter      []string
	replacer    func(key string, value any) any
}

// New validates opts and builds a Serializer.
func New(opts Options) (*Serializer, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	s := &Serializer{
		maxDepth:    opts.MaximumDepth,
		maxBreadth:  opts.MaximumBreadth,
		sortKeys:    !opts.Unsorted,
		compare:     opts.Comparator,
		circular:    opts.Circular,
		placeholder: opts.Placeholder,
		strict:      opts.Strict,
		indent:      truncateIndent(opts.Indent),
		filter:      uniqueKeys(opts.KeyFilter),
		replacer:    opts.Replacer,
	}
	if s.maxDepth == 0 {
		s.maxDepth = math.MaxInt
	}
	if s.maxBreadth == 0 {
		s.maxBreadth = math.MaxInt
	}
	if s.compare == nil {
		s.compare = compareCodeUnits
	}
	if s.circular == CircularDefault {
		s.circular = CircularPlaceholder
		if s.strict {
			s.circular = CircularFail
		}
	}
	if s.placeholder == "" {
		s.placeholder = DefaultPlaceholder
	}
	switch opts.BigInt {
	case BigIntAllow:
		s.bigInt = true
	case BigIntReject:
		s.bigInt = false
	default:
		s.bigInt = !s.strict
	}

	return s, nil
}

// MustNew is like New but panics on invalid options.
func MustNew(opts Options) *Serializer {
	s, err := New(opts)
	if err != nil {
		panic(err)
	}
	return s
}

var defaultSerializer = MustNew(DefaultOptions())

// Marshal serializes v with DefaultOptions.
func Marshal(v any) (string, error) {
	return defaultSerializer.Marshal(v)
}

// Marshal serializes v. The result is empty when v has no representation
// (Undefined, or an unsupported value outside strict mode).
func (s *Serializer) Marshal(v any) (string, error) {
	e := &encoder{s: s}
	text, ok, err := e.encode("", v, "")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return text, nil
}

// ref identifies a container on the traversal stack. A zero ptr marks a
// container reached by value, which can not be re-entered.
type ref struct {
	ptr uintptr
	typ reflect.Type
	n   int
}

type encoder struct {
	s     *Serializer
	stack []ref
	path  []string
}

func (e *encoder) encode(key string, v any, indentation string) (string, bool, error) {
	if c, ok := v.(ToCanonicalValue); ok && !isNilPointer(v) {
		v = c.CanonicalValue()
	}
	if e.s.replacer != nil {
		v = e.s.replacer(key, v)
	}

	switch x := v.(type) {
	case nil:
		return "null", true, nil
	case undefinedValue:
		return "", false, nil
	case string:
		return quote(x), true, nil
	case bool:
		return strconv.FormatBool(x), true, nil
	case float64:
		return e.float(x, 64)
	case float32:
		return e.float(float64(x), 32)
	case int:
		return strconv.Itoa(x), true, nil
	case int64:
		return strconv.FormatInt(x, 10), true, nil
	case int32:
		return strconv.FormatInt(int64(x), 10), true, nil
	case uint64:
		return strconv.FormatUint(x, 10), true, nil
	case *big.Int:
		if x == nil {
			return "null", true, nil
		}
		return e.bigInt(x)
	case big.Int:
		return e.bigInt(&x)
	case encoding.TextMarshaler:
		if isNilPointer(v) {
			return "null", true, nil
		}
		text, err := x.MarshalText()
		if err != nil {
			return "", false, e.fail(fmt.Errorf("%w: %w", ErrConversion, err), reflect.TypeOf(v))
		}
		return quote(string(text)), true, nil
	}

	return e.reflectValue(reflect.ValueOf(v), indentation)
}

func (e *encoder) reflectValue(rv reflect.Value, indentation string) (string, bool, error) {
	var id ref
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "null", true, nil
		}
		if rv.Kind() == reflect.Pointer && id.ptr == 0 {
			id = ref{ptr: rv.Pointer(), typ: rv.Type()}
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.String:
		return quote(rv.String()), true, nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), true, nil
	case reflect.Float32:
		return e.float(rv.Float(), 32)
	case reflect.Float64:
		return e.float(rv.Float(), 64)
	case reflect.Slice:
		if rv.IsNil() {
			return "null", true, nil
		}
		id = ref{ptr: rv.Pointer(), typ: rv.Type(), n: rv.Len()}
		if e.onStack(id) {
			return e.circularValue(rv.Type())
		}
		return e.sequence(id, rv, indentation)
	case reflect.Array:
		if e.onStack(id) {
			return e.circularValue(rv.Type())
		}
		return e.sequence(id, rv, indentation)
	case reflect.Map:
		if rv.IsNil() {
			return "null", true, nil
		}
		id = ref{ptr: rv.Pointer(), typ: rv.Type()}
		if e.onStack(id) {
			return e.circularValue(rv.Type())
		}
		ent, err := e.mapEntries(rv)
		if err != nil {
			return "", false, err
		}
		return e.mapping(id, ent, indentation)
	case reflect.Struct:
		if e.onStack(id) {
			return e.circularValue(rv.Type())
		}
		return e.mapping(id, structEntries(rv), indentation)
	}

	return e.unsupported(rv.Type())
}

func (e *encoder) sequence(id ref, rv reflect.Value, indentation string) (string, bool, error) {
	n := rv.Len()
	if n == 0 {
		return "[]", true, nil
	}
	if e.tooDeep() {
		return `"[Array]"`, true, nil
	}

	e.stack = append(e.stack, id)
	defer e.pop()

	var b strings.Builder
	inner := indentation
	join := ","
	if e.s.indent != "" {
		inner += e.s.indent
		join = ",\n" + inner
		b.WriteString("\n")
		b.WriteString(inner)
	}

	limit := min(n, e.s.maxBreadth)
	for i := 0; i < limit; i++ {
		if i > 0 {
			b.WriteString(join)
		}
		key := strconv.Itoa(i)
		e.path = append(e.path, "["+key+"]")
		text, ok, err := e.encode(key, rv.Index(i).Interface(), inner)
		e.path = e.path[:len(e.path)-1]
		if err != nil {
			return "", false, err
		}
		if !ok {
			text = "null"
		}
		b.WriteString(text)
	}
	if n > limit {
		b.WriteString(join)
		b.WriteString(`"... ` + itemCount(n-limit) + ` not stringified"`)
	}
	if e.s.indent != "" {
		b.WriteString("\n")
		b.WriteString(indentation)
	}

	return "[" + b.String() + "]", true, nil
}

// entries is a keyed mapping flattened to string keys.
type entries struct {
	keys   []string
	values map[string]any
}

// present returns the filter keys that exist in the container, in filter
// order. Breadth is counted over these only.
func (ent entries) present(filter []string) []string {
	keys := make([]string, 0, min(len(filter), len(ent.keys)))
	for _, k := range filter {
		if _, ok := ent.values[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func (e *encoder) mapping(id ref, ent entries, indentation string) (string, bool, error) {
	if len(ent.keys) == 0 {
		return "{}", true, nil
	}
	if e.tooDeep() {
		return `"[Object]"`, true, nil
	}

	keys := ent.keys
	switch {
	case e.s.filter != nil:
		keys = ent.present(e.s.filter)
	case e.s.sortKeys:
		slices.SortStableFunc(keys, e.s.compare)
	}

	inner := indentation
	join := ","
	colon := ":"
	if e.s.indent != "" {
		inner += e.s.indent
		join = ",\n" + inner
		colon = ": "
	}

	e.stack = append(e.stack, id)
	defer e.pop()

	var b strings.Builder
	sep := ""
	limit := min(len(keys), e.s.maxBreadth)
	for _, key := range keys[:limit] {
		value := ent.values[key]
		e.path = append(e.path, "."+key)
		text, ok, err := e.encode(key, value, inner)
		e.path = e.path[:len(e.path)-1]
		if err != nil {
			return "", false, err
		}
		if !ok {
			continue
		}
		b.WriteString(sep)
		b.WriteString(quote(key))
		b.WriteString(colon)
		b.WriteString(text)
		sep = join
	}
	if len(keys) > limit {
		b.WriteString(sep)
		b.WriteString(`"..."` + colon + `"` + itemCount(len(keys)-limit) + ` not stringified"`)
		sep = join
	}

	res := b.String()
	if e.s.indent != "" && sep != "" {
		res = "\n" + inner + res + "\n" + indentation
	}
	return "{" + res + "}", true, nil
}

func (e *encoder) mapEntries(rv reflect.Value) (entries, error) {
	ent := entries{
		keys:   make([]string, 0, rv.Len()),
		values: make(map[string]any, rv.Len()),
	}
	iter := rv.MapRange()
	for iter.Next() {
		key, err := e.keyString(iter.Key())
		if err != nil {
			return entries{}, err
		}
		if _, dup := ent.values[key]; !dup {
			ent.keys = append(ent.keys, key)
		}
		ent.values[key] = iter.Value().Interface()
	}
	return ent, nil
}

func (e *encoder) keyString(k reflect.Value) (string, error) {
	for k.Kind() == reflect.Interface && !k.IsNil() {
		k = k.Elem()
	}
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok && !isNilPointer(k.Interface()) {
		text, err := tm.MarshalText()
		if err != nil {
			return "", e.fail(fmt.Errorf("%w: %w", ErrConversion, err), k.Type())
		}
		return string(text), nil
	}
	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	if e.s.strict {
		return "", e.fail(ErrUnsupported, k.Type())
	}
	return fmt.Sprint(k.Interface()), nil
}

func (e *encoder) float(f float64, bitSize int) (string, bool, error) {
	if finite(f) {
		return formatFloat(f, bitSize), true, nil
	}
	if e.s.strict {
		return "", false, e.fail(fmt.Errorf("%w: %v", ErrNonFinite, f), nil)
	}
	return "null", true, nil
}

func (e *encoder) bigInt(x *big.Int) (string, bool, error) {
	if e.s.bigInt {
		return x.String(), true, nil
	}
	return e.unsupported(reflect.TypeOf(x))
}

func (e *encoder) unsupported(typ reflect.Type) (string, bool, error) {
	if e.s.strict {
		return "", false, e.fail(ErrUnsupported, typ)
	}
	return "", false, nil
}

func (e *encoder) circularValue(typ reflect.Type) (string, bool, error) {
	switch e.s.circular {
	case CircularNull:
		return "null", true, nil
	case CircularOmit:
		return "", false, nil
	case CircularFail:
		return "", false, e.fail(ErrCircular, typ)
	default:
		return quote(e.s.placeholder), true, nil
	}
}

func (e *encoder) onStack(id ref) bool {
	if id.ptr == 0 {
		return false
	}
	for _, open := range e.stack {
		if open == id {
			return true
		}
	}
	return false
}

func (e *encoder) tooDeep() bool {
	return len(e.stack) >= e.s.maxDepth
}

func (e *encoder) pop() {
	e.stack = e.stack[:len(e.stack)-1]
}

func (e *encoder) fail(err error, typ reflect.Type) error {
	se := &StructuralError{Path: "$" + strings.Join(e.path, ""), Err: err}
	if typ != nil {
		se.Type = typ.String()
	}
	return se
}

func itemCount(n int) string {
	if n == 1 {
		return "1 item"
	}
	return strconv.Itoa(n) + " items"
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
