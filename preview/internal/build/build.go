// Package build implements the client-side build pipeline: source
// normalization, per-file transpilation, the per-build module registry,
// the shallow entry import rewrite, and sandbox document assembly.
//
// Build is a pure synchronous function of the project map: it never
// throws, never talks to the sandbox, and converts every failure path
// into a typed diagnostic. The only failure that changes the document's
// structure is an entry transpile error, which leaves the root unmounted.
package build

import (
	"fmt"
	"log/slog"

	"github.com/hazyhaar/previewd/preview/event"
	"github.com/hazyhaar/previewd/preview/internal/vfs"
)

// Options configures one build.
type Options struct {
	// Entry is the designated mount entry path. Its absence yields an
	// empty-root document plus a warning diagnostic, not an error.
	Entry string

	// Stylesheet is the designated global stylesheet path carried verbatim.
	Stylesheet string

	// Imports pins well-known runtime dependency names to fixed
	// resolution targets in the sandbox's import map.
	Imports map[string]string

	// Generation stamps the document and every bridge message it emits.
	Generation uint64

	Logger *slog.Logger
}

// Diagnostic is a build-time condition delivered to the host event
// consumer as a log event of the given kind.
type Diagnostic struct {
	Kind    event.Kind
	Message string
}

// Result is the outcome of one build. Build never fails as a whole:
// failures are diagnostics, and a document is always produced.
type Result struct {
	Document     string
	Modules      []ModuleDescriptor
	Diagnostics  []Diagnostic
	EntryMounted bool
}

// Build runs the whole pipeline over a project snapshot. Synchronous and
// pure: same project, options and generation produce the same Result.
func Build(project vfs.ProjectMap, opts Options) Result {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	src := vfs.Normalize(project, opts.Stylesheet)
	entryPath := vfs.Clean(opts.Entry)

	// Transpile every non-entry unit. A syntax failure here must not
	// abort the build: the registry entry is simply absent and any import
	// pointing at it fails later inside the sandbox.
	reg := NewRegistry()
	for p, text := range src.Transformable {
		if p == entryPath {
			continue
		}
		code, err := Transpile(p, text)
		if err != nil {
			log.Debug("build: dependency transpile failed, module omitted",
				"path", p, "error", err)
			continue
		}
		reg.Add(p, code)
	}

	res := Result{Modules: reg.Modules()}

	var entry *string
	entrySource, hasEntry := src.Transformable[entryPath]
	switch {
	case !hasEntry:
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Kind:    event.KindWarn,
			Message: fmt.Sprintf("entry %s not found in project; nothing mounted", opts.Entry),
		})
	default:
		code, err := Transpile(entryPath, entrySource)
		if err != nil {
			// Fatal to mounting only: the document still loads with its
			// shim installed and the root stays empty.
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Kind:    event.KindError,
				Message: err.Error(),
			})
		} else {
			rewritten := RewriteEntry(entryPath, code, reg)
			entry = &rewritten
			res.EntryMounted = true
		}
	}

	var styles string
	for _, text := range src.Passthrough {
		styles += text
	}

	res.Document = document(documentInput{
		Generation: opts.Generation,
		Styles:     styles,
		Imports:    opts.Imports,
		Modules:    res.Modules,
		Entry:      entry,
	})

	log.Debug("build: complete",
		"generation", opts.Generation,
		"modules", reg.Len(),
		"entry_mounted", res.EntryMounted,
		"diagnostics", len(res.Diagnostics))
	return res
}
