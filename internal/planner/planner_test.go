package planner_test

import (
	"testing"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
	"github.com/tonykolomeytsev/figx/internal/figmodel"
	"github.com/tonykolomeytsev/figx/internal/planner"
)

func baseInput() planner.Input {
	return planner.Input{
		Remotes: map[string]figmodel.Remote{
			"design": {RemoteID: "design", FileKey: "abc123"},
		},
		Profiles: map[string]planner.Profile{
			"icon": {Kind: figmodel.ProfileSVG, Format: "svg"},
		},
	}
}

func TestPlan_SingleResourceNoVariants(t *testing.T) {
	in := baseInput()
	in.Resources = []figmodel.Resource{
		{PackagePath: "ui/icons", Name: "puzzle", ProfileRef: "icon", NodePathTemplate: "Icons / Puzzle / 24",
			Overrides: map[string]any{"remote": "design"}},
	}
	pipelines, err := planner.Plan(in)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(pipelines) != 1 {
		t.Fatalf("got %d pipelines, want 1", len(pipelines))
	}
	p := pipelines[0]
	if p.NodePath != "Icons / Puzzle / 24" {
		t.Fatalf("got NodePath %q", p.NodePath)
	}
	if p.OutputPath != "ui/icons/puzzle.svg" {
		t.Fatalf("got OutputPath %q", p.OutputPath)
	}
	if len(p.Steps) != 3 {
		t.Fatalf("got %d steps, want 3 (export, simplify, write)", len(p.Steps))
	}
}

func TestPlan_VariantExpansionIsCartesianProduct(t *testing.T) {
	in := baseInput()
	in.Resources = []figmodel.Resource{
		{
			PackagePath: "ui/icons", Name: "puzzle", ProfileRef: "icon",
			NodePathTemplate: "Icons / Puzzle / {size}",
			Overrides:        map[string]any{"remote": "design", "output": "ui/icons/puzzle_{size}_{density}.svg"},
			Variants: []figmodel.Variant{
				{Name: "size", Values: map[string]string{"size": "24"}},
				{Name: "density", Values: map[string]string{"density": "2x"}},
			},
		},
	}
	pipelines, err := planner.Plan(in)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(pipelines) != 1 {
		t.Fatalf("got %d pipelines, want 1 (single-valued axes)", len(pipelines))
	}
	if pipelines[0].NodePath != "Icons / Puzzle / 24" {
		t.Fatalf("got NodePath %q", pipelines[0].NodePath)
	}
	if pipelines[0].OutputPath != "ui/icons/puzzle_24_2x.svg" {
		t.Fatalf("got OutputPath %q", pipelines[0].OutputPath)
	}
}

func TestPlan_MissingNameIsConfigError(t *testing.T) {
	in := baseInput()
	in.Resources = []figmodel.Resource{
		{PackagePath: "ui/icons", ProfileRef: "icon", NodePathTemplate: "Icons / Puzzle",
			Overrides: map[string]any{"remote": "design"}},
	}
	_, err := planner.Plan(in)
	if err == nil {
		t.Fatal("expected an error for a resource with no name")
	}
	if !apperrors.IsCategory(err, apperrors.CategoryConfig) {
		t.Fatalf("expected CategoryConfig, got %v", err)
	}
}

func TestPlan_MissingRemoteOverrideIsConfigError(t *testing.T) {
	in := baseInput()
	in.Resources = []figmodel.Resource{
		{PackagePath: "ui/icons", Name: "puzzle", ProfileRef: "icon", NodePathTemplate: "Icons / Puzzle"},
	}
	_, err := planner.Plan(in)
	if err == nil {
		t.Fatal("expected an error for a resource with no remote override")
	}
	if !apperrors.IsCategory(err, apperrors.CategoryConfig) {
		t.Fatalf("expected CategoryConfig, got %v", err)
	}
}

func TestPlan_UnknownRemoteIsConfigError(t *testing.T) {
	in := baseInput()
	in.Resources = []figmodel.Resource{
		{PackagePath: "ui/icons", Name: "puzzle", ProfileRef: "icon",
			NodePathTemplate: "Icons / Puzzle", Overrides: map[string]any{"remote": "missing"}},
	}
	_, err := planner.Plan(in)
	if err == nil {
		t.Fatal("expected an error for an unknown remote reference")
	}
	if !apperrors.IsCategory(err, apperrors.CategoryConfig) {
		t.Fatalf("expected CategoryConfig, got %v", err)
	}
}

func TestPlan_UnknownProfileIsConfigError(t *testing.T) {
	in := baseInput()
	in.Resources = []figmodel.Resource{
		{PackagePath: "ui/icons", Name: "puzzle", ProfileRef: "missing",
			NodePathTemplate: "Icons / Puzzle", Overrides: map[string]any{"remote": "design"}},
	}
	_, err := planner.Plan(in)
	if err == nil {
		t.Fatal("expected an error for an unknown profile reference")
	}
}

func TestPlan_DuplicateOutputPathIsRejected(t *testing.T) {
	in := baseInput()
	in.Resources = []figmodel.Resource{
		{PackagePath: "ui/icons", Name: "a", ProfileRef: "icon", NodePathTemplate: "A",
			Overrides: map[string]any{"remote": "design", "output": "ui/icons/shared.svg"}},
		{PackagePath: "ui/icons", Name: "b", ProfileRef: "icon", NodePathTemplate: "B",
			Overrides: map[string]any{"remote": "design", "output": "ui/icons/shared.svg"}},
	}
	_, err := planner.Plan(in)
	if err == nil {
		t.Fatal("expected a duplicate output path error")
	}
}

func TestPlan_PngProfileChainsRasterStep(t *testing.T) {
	in := baseInput()
	in.Profiles["raster"] = planner.Profile{Kind: figmodel.ProfilePNG, Scale: 2}
	in.Resources = []figmodel.Resource{
		{PackagePath: "ui/icons", Name: "puzzle", ProfileRef: "raster", NodePathTemplate: "Icons / Puzzle",
			Overrides: map[string]any{"remote": "design"}},
	}
	pipelines, err := planner.Plan(in)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	steps := pipelines[0].Steps
	if len(steps) != 4 {
		t.Fatalf("got %d steps, want 4 (export, simplify, raster, write)", len(steps))
	}
	if steps[2].Kind != figmodel.StepRenderRasterFromSvg {
		t.Fatalf("got step kind %q at index 2", steps[2].Kind)
	}
}

func TestPlan_LegacyLoaderSkipsSimplifyAndRenderForPng(t *testing.T) {
	in := baseInput()
	in.Profiles["raster"] = planner.Profile{Kind: figmodel.ProfilePNG, Scale: 2, LegacyLoader: true}
	in.Resources = []figmodel.Resource{
		{PackagePath: "ui/icons", Name: "puzzle", ProfileRef: "raster", NodePathTemplate: "Icons / Puzzle",
			Overrides: map[string]any{"remote": "design"}},
	}
	pipelines, err := planner.Plan(in)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	steps := pipelines[0].Steps
	if len(steps) != 2 {
		t.Fatalf("got %d steps, want 2 (export, write)", len(steps))
	}
	if steps[0].Kind != figmodel.StepExportFromRemote || steps[0].Format != "png" {
		t.Fatalf("got export step %+v, want format png", steps[0])
	}
	if !steps[0].LegacyLoader {
		t.Fatal("expected the export step to carry LegacyLoader")
	}
	if steps[1].Kind != figmodel.StepWriteFile {
		t.Fatalf("got step kind %q at index 1, want write", steps[1].Kind)
	}
}

func TestPlan_LegacyLoaderAndRenderLocallyChainsHaveDifferentShapes(t *testing.T) {
	in := baseInput()
	in.Profiles["render"] = planner.Profile{Kind: figmodel.ProfileWebP, Scale: 2, Quality: 80}
	in.Profiles["legacy"] = planner.Profile{Kind: figmodel.ProfileWebP, Scale: 2, Quality: 80, LegacyLoader: true}
	in.Resources = []figmodel.Resource{
		{PackagePath: "ui/icons", Name: "a", ProfileRef: "render", NodePathTemplate: "A",
			Overrides: map[string]any{"remote": "design"}},
		{PackagePath: "ui/icons", Name: "b", ProfileRef: "legacy", NodePathTemplate: "B",
			Overrides: map[string]any{"remote": "design"}},
	}
	pipelines, err := planner.Plan(in)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	rendered, legacy := pipelines[0], pipelines[1]
	if len(rendered.Steps) != 5 {
		t.Fatalf("got %d steps for the render-locally chain, want 5", len(rendered.Steps))
	}
	if len(legacy.Steps) != 3 {
		t.Fatalf("got %d steps for the legacy chain, want 3 (export, transform-to-webp, write)", len(legacy.Steps))
	}
	if rendered.Steps[0].Format == legacy.Steps[0].Format {
		t.Fatalf("expected the two chains to export different formats, both got %q", rendered.Steps[0].Format)
	}
}

func TestPlan_UnresolvedTemplatePlaceholderIsConfigError(t *testing.T) {
	in := baseInput()
	in.Resources = []figmodel.Resource{
		{PackagePath: "ui/icons", Name: "puzzle", ProfileRef: "icon", NodePathTemplate: "Icons / {missing}",
			Overrides: map[string]any{"remote": "design"}},
	}
	_, err := planner.Plan(in)
	if err == nil {
		t.Fatal("expected an error for an unresolved template placeholder")
	}
}

func TestPlan_OutputIsDeterministicallyOrdered(t *testing.T) {
	in := baseInput()
	in.Resources = []figmodel.Resource{
		{PackagePath: "ui/icons", Name: "zebra", ProfileRef: "icon", NodePathTemplate: "Z",
			Overrides: map[string]any{"remote": "design"}},
		{PackagePath: "ui/icons", Name: "apple", ProfileRef: "icon", NodePathTemplate: "A",
			Overrides: map[string]any{"remote": "design"}},
	}
	pipelines, err := planner.Plan(in)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if pipelines[0].Resource.Name != "apple" {
		t.Fatalf("expected deterministic label-sorted order, got %q first", pipelines[0].Resource.Name)
	}
}
