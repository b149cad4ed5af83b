package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tonykolomeytsev/figx/internal/figmodel"
)

func TestMatchesPattern(t *testing.T) {
	cases := []struct {
		label, pattern string
		want           bool
	}{
		{"//ui/icons:home", "//...", true},
		{"//ui/icons:home", "//ui/icons:home", true},
		{"//ui/icons:home", "//ui/icons:all", true},
		{"//ui/icons:home", "//ui/other:home", false},
		{"//ui/icons:home", ":home", true},
		{"//ui/icons:home", ":other", false},
		{"//ui/icons:home", "//ui/icons:other", false},
	}
	for _, c := range cases {
		if got := matchesPattern(c.label, c.pattern); got != c.want {
			t.Errorf("matchesPattern(%q, %q) = %v, want %v", c.label, c.pattern, got, c.want)
		}
	}
}

func TestSelectPipelines_EmptyPatternsSelectsEverything(t *testing.T) {
	pipelines := []figmodel.Pipeline{
		{Resource: figmodel.Resource{PackagePath: "a", Name: "x"}},
		{Resource: figmodel.Resource{PackagePath: "b", Name: "y"}},
	}
	got := selectPipelines(pipelines, nil)
	if len(got) != 2 {
		t.Fatalf("got %d pipelines, want 2", len(got))
	}
}

func TestSelectPipelines_FiltersByPackage(t *testing.T) {
	pipelines := []figmodel.Pipeline{
		{Resource: figmodel.Resource{PackagePath: "a", Name: "x"}},
		{Resource: figmodel.Resource{PackagePath: "b", Name: "y"}},
	}
	got := selectPipelines(pipelines, []string{"//a:all"})
	if len(got) != 1 || got[0].Resource.Name != "x" {
		t.Fatalf("unexpected selection: %+v", got)
	}
}

func TestLoadWorkspace_DiscoversNestedPackageManifests(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "figx.toml"), `
[remotes.design]
file_key = "ABC123"

[profiles.svg]
kind = "svg"
`)
	writeFile(t, filepath.Join(root, "ui", "icons", "manifest.toml"), `
[[resources]]
name = "home"
remote = "design"
profile = "svg"
node_path = "Icons / home"
`)

	ws, err := loadWorkspace(root)
	if err != nil {
		t.Fatalf("loadWorkspace: %v", err)
	}
	if len(ws.resources) != 1 {
		t.Fatalf("got %d resources, want 1", len(ws.resources))
	}
	if ws.resources[0].Label() != "//ui/icons:home" {
		t.Fatalf("unexpected label: %s", ws.resources[0].Label())
	}

	pipelines, err := ws.plan()
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(pipelines) != 1 {
		t.Fatalf("got %d pipelines, want 1", len(pipelines))
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}
