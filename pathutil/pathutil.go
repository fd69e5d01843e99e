// Package pathutil provides safe traversal of nested documents by dotted
// paths with an optional default, mirroring (and built on top of) the
// same NestedFieldNoCopy-family primitives k8s.io/apimachinery/pkg/apis/
// meta/v1/unstructured uses internally, generalized to accept both a
// dotted-string path ("spec.containers[0].name") and a pre-split
// sequence of keys.
//
// It exists pervasively as a defence against sparse or absent fields in
// server responses: the watch and list packages use it wherever a
// document may or may not carry a given field, and the auth-provider
// credential refresh path uses it to resolve the dotted token/expiry
// paths a kubeconfig supplies in brace-delimited form.
package pathutil

import (
	"fmt"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/cloudlinks/k8swatch/k8serr"
)

// Document is a generic, sparse, JSON-shaped structure: the same
// representation unstructured.Unstructured wraps, and the type every
// Event and list item in this module carries.
type Document = map[string]interface{}

// Path is a pre-split, ordered sequence of keys or array indices.
type Path []string

// Parse splits a dotted path into a Path. Bracket segments "[k]" are
// equivalent to ".k": "a.b[0].c" and "a.b.0.c" parse identically.
// An empty path is a k8serr.BadPath error.
func Parse(path string) (Path, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", k8serr.BadPath)
	}

	normalized := strings.NewReplacer("[", ".", "]", "").Replace(path)
	normalized = strings.TrimPrefix(normalized, ".")
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty path", k8serr.BadPath)
	}

	segments := strings.Split(normalized, ".")
	for _, s := range segments {
		if s == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", k8serr.BadPath, path)
		}
	}
	return Path(segments), nil
}

// toPath normalizes either a string or a Path/[]string into a Path.
func toPath(path interface{}) (Path, error) {
	switch p := path.(type) {
	case Path:
		if len(p) == 0 {
			return nil, fmt.Errorf("%w: empty path", k8serr.BadPath)
		}
		return p, nil
	case []string:
		if len(p) == 0 {
			return nil, fmt.Errorf("%w: empty path", k8serr.BadPath)
		}
		return Path(p), nil
	case string:
		return Parse(p)
	default:
		return nil, fmt.Errorf("%w: unsupported path type %T", k8serr.BadPath, path)
	}
}

// Exists reports whether a value is present at path within root. It
// descends through maps only; a path through a list reports false.
func Exists(root Document, path interface{}) (bool, error) {
	p, err := toPath(path)
	if err != nil {
		return false, err
	}
	_, found, err := unstructured.NestedFieldNoCopy(root, p...)
	if err != nil {
		return false, nil
	}
	return found, nil
}

// Get resolves path within root. If any prefix of the path is absent,
// or points to a non-structured value partway through the walk, the
// default (if supplied) is returned; otherwise k8serr.PathMissing is
// returned. A resolved nil value with a default supplied also yields
// the default, per spec. Get, like Exists, descends through maps only:
// a path that passes through a list (such as "items[0].name") resolves
// as absent.
func Get(root Document, path interface{}, def ...interface{}) (interface{}, error) {
	p, err := toPath(path)
	if err != nil {
		return nil, err
	}

	val, found, walkErr := unstructured.NestedFieldNoCopy(root, p...)
	if walkErr != nil || !found {
		if len(def) > 0 {
			return def[0], nil
		}
		return nil, fmt.Errorf("%w: %s", k8serr.PathMissing, strings.Join([]string(p), "."))
	}
	if val == nil && len(def) > 0 {
		return def[0], nil
	}
	return val, nil
}

// SetOptions configures Set's behavior when intermediate structure is
// missing.
type SetOptions struct {
	// CreateStructure controls whether missing intermediate maps/slices
	// are created as Set walks the path. Defaults to true.
	CreateStructure bool
	// CreateStructureType chooses the container type for created
	// intermediates: "obj" (map[string]interface{}, the default) or
	// "array" ([]interface{}).
	CreateStructureType string
}

// A SetOption modifies SetOptions.
type SetOption func(*SetOptions)

// WithCreateStructure toggles intermediate structure creation.
func WithCreateStructure(create bool) SetOption {
	return func(o *SetOptions) { o.CreateStructure = create }
}

// WithCreateStructureType chooses "obj" or "array" for created
// intermediates.
func WithCreateStructureType(kind string) SetOption {
	return func(o *SetOptions) { o.CreateStructureType = kind }
}

func resolveOptions(opts []SetOption) SetOptions {
	o := SetOptions{CreateStructure: true, CreateStructureType: "obj"}
	for _, f := range opts {
		f(&o)
	}
	return o
}

// Set walks (and, per options, creates) structure within root to write
// value at path. Attempting to descend into an existing non-structured
// leaf is a k8serr.PathConflict error.
func Set(root Document, path interface{}, value interface{}, opts ...SetOption) error {
	p, err := toPath(path)
	if err != nil {
		return err
	}
	o := resolveOptions(opts)

	var cur interface{} = root
	for i := 0; i < len(p)-1; i++ {
		key := p[i]

		switch node := cur.(type) {
		case Document:
			next, ok := node[key]
			if !ok || next == nil {
				if !o.CreateStructure {
					return fmt.Errorf("%w: %s", k8serr.PathMissing, strings.Join([]string(p[:i+1]), "."))
				}
				next = newContainer(o.CreateStructureType)
				node[key] = next
			}
			if !isContainer(next) {
				return fmt.Errorf("%w: %s is a leaf value", k8serr.PathConflict, strings.Join([]string(p[:i+1]), "."))
			}
			cur = next
		case []interface{}:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(node) {
				return fmt.Errorf("%w: index %q out of range", k8serr.PathConflict, key)
			}
			next := node[idx]
			if !isContainer(next) {
				return fmt.Errorf("%w: %s is a leaf value", k8serr.PathConflict, strings.Join([]string(p[:i+1]), "."))
			}
			cur = next
		default:
			return fmt.Errorf("%w: %s is a leaf value", k8serr.PathConflict, strings.Join([]string(p[:i]), "."))
		}
	}

	last := p[len(p)-1]
	switch node := cur.(type) {
	case Document:
		node[last] = value
		return nil
	case []interface{}:
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(node) {
			return fmt.Errorf("%w: index %q out of range", k8serr.PathConflict, last)
		}
		node[idx] = value
		return nil
	default:
		return fmt.Errorf("%w: cannot set through a leaf value", k8serr.PathConflict)
	}
}

// Unset removes the terminal key if present; it is a no-op if any
// prefix of the path is absent.
func Unset(root Document, path interface{}) error {
	p, err := toPath(path)
	if err != nil {
		return err
	}

	var cur interface{} = root
	for i := 0; i < len(p)-1; i++ {
		node, ok := cur.(Document)
		if !ok {
			return nil
		}
		next, ok := node[p[i]]
		if !ok {
			return nil
		}
		cur = next
	}

	if node, ok := cur.(Document); ok {
		delete(node, p[len(p)-1])
	}
	return nil
}

func isContainer(v interface{}) bool {
	switch v.(type) {
	case Document, []interface{}:
		return true
	default:
		return false
	}
}

func newContainer(kind string) interface{} {
	if kind == "array" {
		return []interface{}{}
	}
	return Document{}
}
