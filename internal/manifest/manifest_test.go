package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tonykolomeytsev/figx/internal/manifest"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	return path
}

func TestLoadRoot_DecodesSettingsWithPartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "figx.toml", `
[settings]
worker_count = 4
max_retries = 2
`)
	m, err := manifest.LoadRoot(path)
	if err != nil {
		t.Fatalf("LoadRoot: %v", err)
	}
	s := m.Settings.Defaults()
	if s.WorkerCount != 4 {
		t.Fatalf("got WorkerCount %d, want 4", s.WorkerCount)
	}
	if s.MaxRetries != 2 {
		t.Fatalf("got MaxRetries %d, want 2", s.MaxRetries)
	}
	if s.RequestTimeoutSeconds != 30 {
		t.Fatalf("got RequestTimeoutSeconds %d, want the default 30", s.RequestTimeoutSeconds)
	}
	if s.RatePerSecond != 10 {
		t.Fatalf("got RatePerSecond %v, want the default 10", s.RatePerSecond)
	}
}

func TestLoadRoot_DecodesRemotesAndProfiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "figx.toml", `
[remotes.design]
file_key = "abc123"
container_node_ids = ["1:2", "1:3"]
token_var = "FIGMA_DESIGN_TOKEN"

[profiles.icon]
kind = "android-drawable"
format = "svg"
scale = 1.0
`)
	m, err := manifest.LoadRoot(path)
	if err != nil {
		t.Fatalf("LoadRoot: %v", err)
	}
	r, ok := m.Remotes["design"]
	if !ok {
		t.Fatal("expected remote \"design\"")
	}
	if r.FileKey != "abc123" {
		t.Fatalf("got FileKey %q", r.FileKey)
	}
	if len(r.ContainerNodeIDs) != 2 {
		t.Fatalf("got %d container node ids, want 2", len(r.ContainerNodeIDs))
	}
	p, ok := m.Profiles["icon"]
	if !ok {
		t.Fatal("expected profile \"icon\"")
	}
	if p.Kind != "android-drawable" {
		t.Fatalf("got Kind %q", p.Kind)
	}
}

func TestLoadPackage_DecodesResourcesWithVariants(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "BUILD.toml", `
[[resources]]
name = "puzzle"
remote = "design"
profile = "icon"
node_path = "Icons / Puzzle / {size}"

[[resources.variants]]
name = "size"
values = { size = "24" }
`)
	m, err := manifest.LoadPackage(path)
	if err != nil {
		t.Fatalf("LoadPackage: %v", err)
	}
	if len(m.Resources) != 1 {
		t.Fatalf("got %d resources, want 1", len(m.Resources))
	}
	r := m.Resources[0]
	if r.Name != "puzzle" {
		t.Fatalf("got Name %q", r.Name)
	}
	if len(r.Variants) != 1 || r.Variants[0].Values["size"] != "24" {
		t.Fatalf("variants not decoded: %+v", r.Variants)
	}
}

func TestResolveProfile_NoExtends(t *testing.T) {
	profiles := map[string]manifest.ProfileDecl{
		"base": {Kind: "svg", Format: "svg"},
	}
	p, err := manifest.ResolveProfile(profiles, "base")
	if err != nil {
		t.Fatalf("ResolveProfile: %v", err)
	}
	if p.Kind != "svg" {
		t.Fatalf("got Kind %q", p.Kind)
	}
}

func TestResolveProfile_SingleLevelExtendsInheritsUnsetFields(t *testing.T) {
	profiles := map[string]manifest.ProfileDecl{
		"base":   {Kind: "png", Format: "png", Scale: 1.0, Quality: 90},
		"hidpi":  {Extends: "base", Scale: 3.0},
	}
	p, err := manifest.ResolveProfile(profiles, "hidpi")
	if err != nil {
		t.Fatalf("ResolveProfile: %v", err)
	}
	if p.Scale != 3.0 {
		t.Fatalf("got Scale %v, want overridden 3.0", p.Scale)
	}
	if p.Format != "png" {
		t.Fatalf("got Format %q, want inherited \"png\"", p.Format)
	}
	if p.Quality != 90 {
		t.Fatalf("got Quality %d, want inherited 90", p.Quality)
	}
}

func TestResolveProfile_RejectsDeepChain(t *testing.T) {
	profiles := map[string]manifest.ProfileDecl{
		"a": {Kind: "png"},
		"b": {Extends: "a"},
		"c": {Extends: "b"},
	}
	if _, err := manifest.ResolveProfile(profiles, "c"); err == nil {
		t.Fatal("expected a two-level extends chain to be rejected")
	}
}

func TestResolveProfile_UnknownNameIsConfigError(t *testing.T) {
	if _, err := manifest.ResolveProfile(map[string]manifest.ProfileDecl{}, "missing"); err == nil {
		t.Fatal("expected an error for an unknown profile name")
	}
}

func TestPackagePath_RelativeToRepoRoot(t *testing.T) {
	root := "/repo"
	got, err := manifest.PackagePath("/repo/ui/icons/BUILD.toml", root)
	if err != nil {
		t.Fatalf("PackagePath: %v", err)
	}
	if got != "ui/icons" {
		t.Fatalf("got %q, want %q", got, "ui/icons")
	}
}

func TestResourceDecl_ToResource_DefaultsNodePathFromName(t *testing.T) {
	d := manifest.ResourceDecl{Name: "app_icon", Remote: "design", Profile: "icon"}
	r := d.ToResource("ui/icons", "ui/icons/BUILD.toml", 3)
	if r.NodePathTemplate != "app icon" {
		t.Fatalf("got NodePathTemplate %q", r.NodePathTemplate)
	}
	if r.Label() != "//ui/icons:app_icon" {
		t.Fatalf("got Label %q", r.Label())
	}
}

func TestResourceDecl_ToResource_CarriesRemoteAndOutputIntoOverrides(t *testing.T) {
	d := manifest.ResourceDecl{
		Name:     "app_icon",
		Remote:   "design",
		Profile:  "icon",
		Output:   "ui/icons/app_icon.svg",
		Overrides: map[string]any{"legacy_loader": true},
	}
	r := d.ToResource("ui/icons", "ui/icons/BUILD.toml", 3)
	if got, ok := r.Overrides["remote"].(string); !ok || got != "design" {
		t.Fatalf("Overrides[\"remote\"] = %v, want \"design\"", r.Overrides["remote"])
	}
	if got, ok := r.Overrides["output"].(string); !ok || got != "ui/icons/app_icon.svg" {
		t.Fatalf("Overrides[\"output\"] = %v, want the declared output path", r.Overrides["output"])
	}
	if got, ok := r.Overrides["legacy_loader"].(bool); !ok || !got {
		t.Fatalf("expected the original overrides table to survive, got %v", r.Overrides)
	}
}
