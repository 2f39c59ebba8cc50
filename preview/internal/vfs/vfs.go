// Package vfs models the in-memory virtual project: a map of
// project-relative paths to full source text, replaced wholesale on every
// edit. It provides the source normalizer that splits the map into
// transformable units and pass-through assets, and the path resolution
// rules used by the module registry and import rewriter.
package vfs

import (
	"path"
	"strings"
)

// ProjectMap maps project-relative path → full source text. Keys are
// unique; insertion order is irrelevant. The surrounding editor owns the
// map; the build pipeline only reads it.
type ProjectMap map[string]string

// Sources is the output of normalization: transformable units keyed by
// cleaned path, and pass-through assets injected verbatim into the
// sandbox document.
type Sources struct {
	Transformable map[string]string
	Passthrough   map[string]string
}

// transformableExts lists the source extensions the transpiler accepts.
var transformableExts = map[string]bool{
	".js":  true,
	".jsx": true,
	".ts":  true,
	".tsx": true,
}

// Transformable reports whether a path names a transpilable source file.
func Transformable(p string) bool {
	return transformableExts[strings.ToLower(path.Ext(p))]
}

// Normalize filters a ProjectMap into transformable units and pass-through
// assets. stylesheet names the one designated global stylesheet carried
// verbatim; every other unsupported extension is silently excluded.
// Deterministic, never errors.
func Normalize(p ProjectMap, stylesheet string) Sources {
	out := Sources{
		Transformable: make(map[string]string, len(p)),
		Passthrough:   make(map[string]string, 1),
	}
	styleClean := Clean(stylesheet)

	for raw, text := range p {
		cp := Clean(raw)
		switch {
		case Transformable(cp):
			out.Transformable[cp] = text
		case cp == styleClean && cp != "":
			out.Passthrough[cp] = text
		}
	}
	return out
}

// Clean canonicalizes a project path: forward slashes, no leading "./" or
// "/", lexically cleaned. Clean("") is "".
func Clean(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "/")
	p = path.Clean(p)
	if p == "." {
		return ""
	}
	return strings.TrimPrefix(p, "./")
}

// IsRelative reports whether an import specifier points into the project
// (as opposed to a bare package name resolved by the import map).
func IsRelative(spec string) bool {
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || strings.HasPrefix(spec, "/")
}

// probeSuffixes are tried in order when a specifier omits its extension.
var probeSuffixes = []string{
	"", ".jsx", ".js", ".tsx", ".ts",
	"/index.jsx", "/index.js", "/index.tsx", "/index.ts",
}

// Resolve maps an import specifier, written in the file living in fromDir,
// to the cleaned project path it denotes. exists reports membership in the
// candidate set (typically the module registry). Bare specifiers never
// resolve — they belong to the sandbox's import map.
func Resolve(fromDir, spec string, exists func(string) bool) (string, bool) {
	if !IsRelative(spec) {
		return "", false
	}

	var base string
	if strings.HasPrefix(spec, "/") {
		base = Clean(spec)
	} else {
		base = Clean(path.Join(fromDir, spec))
	}
	if base == "" {
		return "", false
	}

	for _, suffix := range probeSuffixes {
		candidate := base + suffix
		if exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}
