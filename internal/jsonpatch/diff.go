// Package jsonpatch produces RFC 6902 patches describing how a stored record
// changed during an edit.
package jsonpatch

import (
	"sort"
	"strconv"
	"strings"
)

const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
)

// Op is a single RFC 6902 operation.
type Op struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value,omitempty"`
}

// Diff returns the operations that turn a into b. Values are decoded JSON
// (maps, slices, primitives); path is "" for the document root. Removals
// of object keys come first, then additions and replacements, each in key
// order.
func Diff(a, b interface{}, path string) []Op {
	var p patch
	p.value(a, b, path)
	return p.ops
}

// Fields lists the top-level members touched by ops, deduplicated and sorted.
func Fields(ops []Op) []string {
	seen := make(map[string]bool, len(ops))
	var names []string
	for _, op := range ops {
		name := strings.SplitN(strings.TrimPrefix(op.Path, "/"), "/", 2)[0]
		name = unescapeKey(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type patch struct {
	ops []Op
}

func (p *patch) emit(op, path string, v interface{}) {
	p.ops = append(p.ops, Op{Op: op, Path: path, Value: v})
}

func (p *patch) value(a, b interface{}, path string) {
	switch {
	case a == nil && b == nil:
		return
	case a == nil || b == nil:
		p.emit(OpReplace, path, b)
		return
	}

	switch av := a.(type) {
	case map[string]interface{}:
		if bv, ok := b.(map[string]interface{}); ok {
			p.object(av, bv, path)
			return
		}
	case []interface{}:
		if bv, ok := b.([]interface{}); ok {
			p.array(av, bv, path)
			return
		}
	default:
		if !isComposite(b) && a == b {
			return
		}
	}
	p.emit(OpReplace, path, b)
}

func (p *patch) object(a, b map[string]interface{}, path string) {
	for _, k := range sortedKeys(a) {
		if _, ok := b[k]; !ok {
			p.emit(OpRemove, path+"/"+escapeKey(k), nil)
		}
	}
	for _, k := range sortedKeys(b) {
		child := path + "/" + escapeKey(k)
		if av, ok := a[k]; ok {
			p.value(av, b[k], child)
		} else {
			p.emit(OpAdd, child, b[k])
		}
	}
}

// array compares element-wise; trailing removals run back to front so
// indices stay valid when the patch is applied in order.
func (p *patch) array(a, b []interface{}, path string) {
	common := min(len(a), len(b))
	for i := 0; i < common; i++ {
		p.value(a[i], b[i], path+"/"+strconv.Itoa(i))
	}
	for i := len(a) - 1; i >= common; i-- {
		p.emit(OpRemove, path+"/"+strconv.Itoa(i), nil)
	}
	for i := common; i < len(b); i++ {
		p.emit(OpAdd, path+"/"+strconv.Itoa(i), b[i])
	}
}

func isComposite(v interface{}) bool {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return true
	}
	return false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var (
	keyEscaper   = strings.NewReplacer("~", "~0", "/", "~1")
	keyUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

// escapeKey encodes a JSON Pointer reference token (RFC 6901).
func escapeKey(s string) string { return keyEscaper.Replace(s) }

func unescapeKey(s string) string { return keyUnescaper.Replace(s) }
