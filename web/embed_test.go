package web

import (
	"io/fs"
	"strings"
	"testing"
)

func TestStatic(t *testing.T) {
	fsys, err := Static()
	if err != nil {
		t.Fatalf("Static() error = %v", err)
	}

	for _, name := range []string{"index.html", "app.js", "style.css"} {
		if _, err := fs.Stat(fsys, name); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}

	index, err := fs.ReadFile(fsys, "index.html")
	if err != nil {
		t.Fatalf("ReadFile(index.html) error = %v", err)
	}
	if !strings.Contains(string(index), "app.js") {
		t.Error("index.html should load app.js")
	}
}
