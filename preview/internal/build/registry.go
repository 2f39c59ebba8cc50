package build

import (
	"path"
	"sort"

	"github.com/hazyhaar/previewd/preview/internal/vfs"
)

// ModuleRefPrefix is the scheme of a registry module reference. A
// reference like "project:components/Btn.jsx" is a stable token: the
// sandbox bootstrap binds it to a freshly created blob URL in the
// document's import map, so the same registry produces the same document
// text on every build.
const ModuleRefPrefix = "project:"

// ModuleDescriptor holds one successfully transpiled non-entry file.
// Owned exclusively by the Registry for the lifetime of one build;
// superseded wholesale on rebuild, never mutated.
type ModuleDescriptor struct {
	LogicalPath    string `json:"path"`
	ModuleRef      string `json:"ref"`
	TranspiledText string `json:"code"`
}

// Registry maps logical project paths to loadable module references for
// one build.
type Registry struct {
	byPath map[string]ModuleDescriptor
}

// NewRegistry creates an empty per-build registry.
func NewRegistry() *Registry {
	return &Registry{byPath: make(map[string]ModuleDescriptor)}
}

// Add records a transpiled non-entry module under its cleaned logical path.
func (r *Registry) Add(logicalPath, transpiled string) ModuleDescriptor {
	cp := vfs.Clean(logicalPath)
	d := ModuleDescriptor{
		LogicalPath:    cp,
		ModuleRef:      ModuleRefPrefix + cp,
		TranspiledText: transpiled,
	}
	r.byPath[cp] = d
	return d
}

// Lookup returns the descriptor registered under a cleaned logical path.
func (r *Registry) Lookup(logicalPath string) (ModuleDescriptor, bool) {
	d, ok := r.byPath[vfs.Clean(logicalPath)]
	return d, ok
}

// ResolveSpecifier maps an import specifier written in the file at
// fromPath to a registered descriptor, probing extensions and index files.
func (r *Registry) ResolveSpecifier(fromPath, spec string) (ModuleDescriptor, bool) {
	resolved, ok := vfs.Resolve(path.Dir(vfs.Clean(fromPath)), spec, func(p string) bool {
		_, present := r.byPath[p]
		return present
	})
	if !ok {
		return ModuleDescriptor{}, false
	}
	return r.byPath[resolved], true
}

// Modules returns all descriptors ordered by logical path, so document
// assembly is deterministic for a given build input.
func (r *Registry) Modules() []ModuleDescriptor {
	paths := make([]string, 0, len(r.byPath))
	for p := range r.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := make([]ModuleDescriptor, len(paths))
	for i, p := range paths {
		out[i] = r.byPath[p]
	}
	return out
}

// Len reports the number of registered modules.
func (r *Registry) Len() int { return len(r.byPath) }
