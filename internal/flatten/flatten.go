package flatten

import (
	"strconv"
	"strings"

	"github.com/mwiater/jsonrag/internal/ragerr"
)

// Record is one leaf of a flattened document.
type Record struct {
	Path  string
	Value Value
}

func (r Record) String() string {
	return r.Path + ": " + r.Value.Text()
}

// Flatten walks an object depth-first in source order and emits one record per
// scalar leaf. Object members extend the path with ".key", array elements with
// "[i]". Empty containers emit nothing.
//
// If two leaves produce the same path (a literal "a.b" key next to a nested
// {"a":{"b":...}}), the record keeps the first position and the last value.
func Flatten(v Value) ([]Record, error) {
	if v.Kind() != KindObject {
		return nil, ragerr.Newf(ragerr.ErrInvalidShape, "flatten", "top-level value is %s, want object", v.Kind())
	}
	f := flattener{seen: make(map[string]int)}
	f.walk("", v)
	return f.records, nil
}

type flattener struct {
	records []Record
	seen    map[string]int
}

func (f *flattener) walk(path string, v Value) {
	switch v.kind {
	case KindObject:
		for _, m := range v.members {
			f.walk(joinKey(path, m.Key), m.Value)
		}
	case KindArray:
		for i, item := range v.items {
			f.walk(path+"["+strconv.Itoa(i)+"]", item)
		}
	default:
		f.emit(path, v)
	}
}

func (f *flattener) emit(path string, v Value) {
	if i, ok := f.seen[path]; ok {
		f.records[i].Value = v
		return
	}
	f.seen[path] = len(f.records)
	f.records = append(f.records, Record{Path: path, Value: v})
}

func joinKey(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// Render joins records as "path: value" lines.
func Render(records []Record) string {
	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.String())
	}
	return b.String()
}
