package build

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed shim.js
var shimJS string

//go:embed bootstrap.js
var bootstrapJS string

// documentInput carries everything the document builder templates into one
// self-contained sandbox page.
type documentInput struct {
	Generation uint64
	Styles     string            // concatenated passthrough stylesheet text
	Imports    map[string]string // well-known dep name → resolution target
	Modules    []ModuleDescriptor
	Entry      *string // rewritten entry text; nil when nothing mounts
}

// document assembles the SandboxDocument string. Pure templating: no
// project code executes here, and all executable logic (module
// materialization, mounting) lives inside the isolation boundary. For a
// fixed generation and input the output is byte-identical.
func document(in documentInput) string {
	var b strings.Builder

	b.WriteString("<!doctype html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")

	// (a) Global style injection.
	b.WriteString("<style>\n")
	b.WriteString(escapeStyle(in.Styles))
	b.WriteString("\n</style>\n")

	// (b) Instrumentation shim, installed before any project code.
	b.WriteString("<script>\n")
	fmt.Fprintf(&b, "const __PREVIEW_GENERATION__ = %d;\n", in.Generation)
	b.WriteString(shimJS)
	b.WriteString("</script>\n")

	// (c) Bootstrap: project data passed explicitly as embedded JSON, then
	// the import map + blob materialization + mount sequence.
	b.WriteString("<script>\n")
	fmt.Fprintf(&b, "const __PREVIEW_IMPORTS__ = %s;\n", scriptJSON(in.Imports))
	fmt.Fprintf(&b, "const __PREVIEW_MODULES__ = %s;\n", scriptJSON(in.Modules))
	if in.Entry != nil {
		fmt.Fprintf(&b, "const __PREVIEW_ENTRY__ = %s;\n", scriptJSON(*in.Entry))
	} else {
		b.WriteString("const __PREVIEW_ENTRY__ = null;\n")
	}
	b.WriteString(bootstrapJS)
	b.WriteString("</script>\n")

	b.WriteString("</head>\n<body>\n<div id=\"root\"></div>\n</body>\n</html>\n")
	return b.String()
}

// scriptJSON marshals a value for embedding inside an inline <script>.
// encoding/json escapes '<' as \u003c, which prevents generated source
// containing "</script>" from terminating the block.
func scriptJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Inputs are strings and maps of strings; this cannot fail.
		return "null"
	}
	return string(data)
}

// escapeStyle neutralizes a premature </style> inside passthrough CSS.
func escapeStyle(css string) string {
	return strings.ReplaceAll(css, "</style", `<\/style`)
}
