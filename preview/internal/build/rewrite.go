package build

import (
	"regexp"
	"strings"
)

// importSpecRe matches the trailing string literal of a static import or
// re-export declaration in esbuild's ES module output:
//
//	import X from "./a";      import { x } from "./a";
//	import * as X from "./a"; import "./a";
//	export { x } from "./a";  export * from "./a";
//
// esbuild emits one declaration per line, which keeps a line-anchored
// pattern sufficient. Dynamic import() calls are deliberately not matched:
// the rewrite is a single shallow static pass over the entry module.
var importSpecRe = regexp.MustCompile(`(?m)^\s*(?:import|export)\b[^'"` + "`" + `\n]*?['"]([^'"\n]+)['"]\s*;?\s*$`)

// RewriteEntry rewrites the entry module's static import specifiers.
// Specifiers resolving to a registered project module are replaced by that
// module's registry reference; everything else (bare package names,
// unresolvable paths) passes through untouched and is either resolved by
// the sandbox's import map or fails at runtime inside the sandbox.
func RewriteEntry(entryPath, code string, reg *Registry) string {
	matches := importSpecRe.FindAllStringSubmatchIndex(code, -1)
	if len(matches) == 0 {
		return code
	}

	var b strings.Builder
	b.Grow(len(code))
	last := 0
	for _, m := range matches {
		specStart, specEnd := m[2], m[3]
		spec := code[specStart:specEnd]

		desc, ok := reg.ResolveSpecifier(entryPath, spec)
		if !ok {
			continue
		}

		b.WriteString(code[last:specStart])
		b.WriteString(desc.ModuleRef)
		last = specEnd
	}
	b.WriteString(code[last:])
	return b.String()
}
