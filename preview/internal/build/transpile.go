package build

import (
	"fmt"
	"path"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// loaderFor picks the esbuild loader matching a file extension. Only
// extensions accepted by vfs.Transformable reach this point.
func loaderFor(p string) api.Loader {
	switch strings.ToLower(path.Ext(p)) {
	case ".jsx":
		return api.LoaderJSX
	case ".tsx":
		return api.LoaderTSX
	case ".ts":
		return api.LoaderTS
	default:
		return api.LoaderJS
	}
}

// Transpile converts one file's source text (JSX/TSX/TS/modern JS) into a
// plain ES module. The automatic JSX runtime is used so transpiled output
// imports react/jsx-runtime instead of requiring React in scope; the
// sandbox's import map resolves that bare specifier.
func Transpile(p, source string) (string, error) {
	res := api.Transform(source, api.TransformOptions{
		Loader:          loaderFor(p),
		Format:          api.FormatESModule,
		Target:          api.ES2020,
		JSX:             api.JSXAutomatic,
		JSXImportSource: "react",
		Sourcefile:      p,
	})

	if len(res.Errors) > 0 {
		return "", fmt.Errorf("build: transpile %s: %s", p, formatMessage(res.Errors[0]))
	}
	return string(res.Code), nil
}

// formatMessage renders one esbuild diagnostic as "line:col: text".
func formatMessage(m api.Message) string {
	if m.Location != nil {
		return fmt.Sprintf("%d:%d: %s", m.Location.Line, m.Location.Column, m.Text)
	}
	return m.Text
}
