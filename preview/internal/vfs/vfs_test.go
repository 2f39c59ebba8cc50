package vfs

import "testing"

func TestNormalize_Split(t *testing.T) {
	p := ProjectMap{
		"App.jsx":            "export default () => null",
		"components/Btn.tsx": "export default () => null",
		"util.js":            "export const x = 1",
		"styles.css":         "body { margin: 0 }",
		"README.md":          "# readme",
		"logo.svg":           "<svg/>",
	}

	got := Normalize(p, "styles.css")

	if len(got.Transformable) != 3 {
		t.Fatalf("Transformable: got %d entries, want 3", len(got.Transformable))
	}
	for _, want := range []string{"App.jsx", "components/Btn.tsx", "util.js"} {
		if _, ok := got.Transformable[want]; !ok {
			t.Errorf("Transformable missing %q", want)
		}
	}
	if len(got.Passthrough) != 1 {
		t.Fatalf("Passthrough: got %d entries, want 1", len(got.Passthrough))
	}
	if got.Passthrough["styles.css"] != "body { margin: 0 }" {
		t.Errorf("Passthrough stylesheet: got %q", got.Passthrough["styles.css"])
	}
}

func TestNormalize_UnsupportedSilentlyExcluded(t *testing.T) {
	p := ProjectMap{"data.json": "{}", "notes.txt": "x"}
	got := Normalize(p, "styles.css")
	if len(got.Transformable)+len(got.Passthrough) != 0 {
		t.Errorf("got %d+%d entries, want none", len(got.Transformable), len(got.Passthrough))
	}
}

func TestNormalize_LeadingDotSlash(t *testing.T) {
	p := ProjectMap{"./App.jsx": "x"}
	got := Normalize(p, "styles.css")
	if _, ok := got.Transformable["App.jsx"]; !ok {
		t.Errorf("Transformable missing cleaned key App.jsx, got %v", got.Transformable)
	}
}

func TestClean(t *testing.T) {
	tests := []struct{ in, want string }{
		{"./App.jsx", "App.jsx"},
		{"/src/App.jsx", "src/App.jsx"},
		{"src/../App.jsx", "App.jsx"},
		{"components//Btn.jsx", "components/Btn.jsx"},
		{"", ""},
		{".", ""},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	known := map[string]bool{
		"components/Btn.jsx":  true,
		"components/index.js": true,
		"util.ts":             true,
	}
	exists := func(p string) bool { return known[p] }

	tests := []struct {
		fromDir string
		spec    string
		want    string
		ok      bool
	}{
		{"", "./components/Btn.jsx", "components/Btn.jsx", true},
		{"", "./components/Btn", "components/Btn.jsx", true},
		{"", "./components", "components/index.js", true},
		{"", "./util", "util.ts", true},
		{"components", "../util", "util.ts", true},
		{"", "/components/Btn", "components/Btn.jsx", true},
		{"", "./missing", "", false},
		{"", "react", "", false},
		{"", "react-dom/client", "", false},
	}
	for _, tt := range tests {
		got, ok := Resolve(tt.fromDir, tt.spec, exists)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Resolve(%q, %q): got (%q, %v), want (%q, %v)",
				tt.fromDir, tt.spec, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTransformable(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"App.jsx", true},
		{"a.TSX", true},
		{"a.js", true},
		{"styles.css", false},
		{"a.md", false},
	}
	for _, tt := range tests {
		if got := Transformable(tt.path); got != tt.want {
			t.Errorf("Transformable(%q): got %v, want %v", tt.path, got, tt.want)
		}
	}
}
