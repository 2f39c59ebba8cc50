package build

import (
	"strings"
	"testing"

	"github.com/hazyhaar/previewd/preview/event"
	"github.com/hazyhaar/previewd/preview/internal/vfs"
)

func testOptions(gen uint64) Options {
	return Options{
		Entry:      "App.jsx",
		Stylesheet: "styles.css",
		Imports: map[string]string{
			"react":             "https://esm.sh/react@18.3.1",
			"react-dom/client":  "https://esm.sh/react-dom@18.3.1/client",
			"react/jsx-runtime": "https://esm.sh/react@18.3.1/jsx-runtime",
		},
		Generation: gen,
	}
}

func TestTranspile_JSX(t *testing.T) {
	code, err := Transpile("App.jsx", `export default function App() { return <div>hi</div>; }`)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	if !strings.Contains(code, "react/jsx-runtime") {
		t.Errorf("automatic JSX runtime import missing:\n%s", code)
	}
	if strings.Contains(code, "<div>") {
		t.Errorf("JSX not transpiled:\n%s", code)
	}
}

func TestTranspile_SyntaxError(t *testing.T) {
	_, err := Transpile("App.jsx", `export default function ( {`)
	if err == nil {
		t.Fatal("Transpile invalid source: got nil error, want error")
	}
	if !strings.Contains(err.Error(), "App.jsx") {
		t.Errorf("error should name the file: %v", err)
	}
}

func TestBuild_Success(t *testing.T) {
	project := vfs.ProjectMap{
		"App.jsx":            `import Btn from "./components/Btn"; export default () => <Btn/>;`,
		"components/Btn.jsx": `export default () => <button>go</button>;`,
		"styles.css":         "body { color: red }",
	}

	res := Build(project, testOptions(1))

	if !res.EntryMounted {
		t.Fatal("EntryMounted: got false, want true")
	}
	if len(res.Diagnostics) != 0 {
		t.Fatalf("Diagnostics: got %v, want none", res.Diagnostics)
	}
	if len(res.Modules) != 1 {
		t.Fatalf("Modules: got %d, want 1", len(res.Modules))
	}
	if res.Modules[0].ModuleRef != "project:components/Btn.jsx" {
		t.Errorf("ModuleRef: got %q", res.Modules[0].ModuleRef)
	}
	if !strings.Contains(res.Document, "body { color: red }") {
		t.Error("document missing passthrough styles")
	}
	if !strings.Contains(res.Document, "__PREVIEW_GENERATION__ = 1") {
		t.Error("document missing generation stamp")
	}
	if !strings.Contains(res.Document, `"project:components/Btn.jsx"`) {
		t.Error("document missing rewritten module reference")
	}
}

func TestBuild_DependencyErrorNonFatal(t *testing.T) {
	project := vfs.ProjectMap{
		"App.jsx":    `import B from "./broken"; export default () => <B/>;`,
		"broken.jsx": `export default function ( {`,
	}

	res := Build(project, testOptions(1))

	if !res.EntryMounted {
		t.Error("EntryMounted: got false, want true (dependency failure is non-fatal)")
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("Diagnostics: got %v, want none at build time", res.Diagnostics)
	}
	if len(res.Modules) != 0 {
		t.Errorf("Modules: got %d, want 0 (broken module absent from registry)", len(res.Modules))
	}
	// The import stays un-rewritten so it fails inside the sandbox.
	if !strings.Contains(res.Document, "./broken") {
		t.Error("unresolvable specifier should survive into the document")
	}
}

func TestBuild_EntryErrorShortCircuitsMount(t *testing.T) {
	project := vfs.ProjectMap{"App.jsx": `export default function ( {`}

	res := Build(project, testOptions(2))

	if res.EntryMounted {
		t.Error("EntryMounted: got true, want false")
	}
	errs := 0
	for _, d := range res.Diagnostics {
		if d.Kind == event.KindError {
			errs++
		}
	}
	if errs != 1 {
		t.Fatalf("error diagnostics: got %d, want exactly 1", errs)
	}
	if !strings.Contains(res.Document, "__PREVIEW_ENTRY__ = null") {
		t.Error("document should carry a null entry when mounting is short-circuited")
	}
	if !strings.Contains(res.Document, `<div id="root">`) {
		t.Error("document should keep its empty root")
	}
}

func TestBuild_MissingEntryWarns(t *testing.T) {
	project := vfs.ProjectMap{"util.js": `export const x = 1;`}

	res := Build(project, testOptions(3))

	if res.EntryMounted {
		t.Error("EntryMounted: got true, want false")
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Kind != event.KindWarn {
		t.Fatalf("Diagnostics: got %v, want exactly one warning", res.Diagnostics)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	project := vfs.ProjectMap{
		"App.jsx":    `export default () => <p>hi</p>;`,
		"a.jsx":      `export default 1;`,
		"b.jsx":      `export default 2;`,
		"styles.css": ".x{}",
	}

	one := Build(project, testOptions(9))
	two := Build(project, testOptions(9))
	if one.Document != two.Document {
		t.Error("building twice from the same project must yield an identical document")
	}
}

func TestDocument_ScriptBreakoutEscaped(t *testing.T) {
	project := vfs.ProjectMap{
		"App.jsx": `export default () => "</script><script>alert(1)</script>";`,
	}

	res := Build(project, testOptions(1))
	if strings.Contains(res.Document, "</script><script>alert(1)") {
		t.Error("embedded source must not break out of the inline script block")
	}
}

func TestDocument_StyleBreakoutEscaped(t *testing.T) {
	if got := escapeStyle("a{} </style><script>x</script>"); strings.Contains(got, "</style>") {
		t.Errorf("style breakout not escaped: %q", got)
	}
}
