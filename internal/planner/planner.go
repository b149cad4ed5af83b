// Package planner expands declared Resources into the concrete Pipelines
// the Scheduler runs, per SPEC_FULL.md §4.F: variant Cartesian-product
// expansion, name-template substitution, step-chain instantiation per
// profile kind. Plan computes no step fingerprints; internal/scheduler
// derives each step's cache key when it executes the step. Planning is a
// pure, single-pass, stdlib-only computation — the static counterpart of
// core.Processor.ProcessVariants's runtime fan-out.
package planner

import (
	"sort"
	"strings"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
	"github.com/tonykolomeytsev/figx/internal/figmodel"
	"github.com/tonykolomeytsev/figx/internal/manifest"
)

// Profile is the resolved (post-extends) configuration backing one or more
// Resources.
type Profile struct {
	Kind         figmodel.ProfileKind
	Format       string
	Scale        float64
	Quality      int
	Package      string
	LegacyLoader bool
}

// Input bundles everything Plan needs: declared resources, the remotes and
// profiles they reference, resolved from the manifest layer.
type Input struct {
	Resources []figmodel.Resource
	Remotes   map[string]figmodel.Remote
	Profiles  map[string]Profile
}

// Plan expands in.Resources into a flat, deterministic list of Pipelines.
// It returns a CategoryConfig error, with a ManifestRef pointing at the
// offending declaration, if a resource names an unknown remote/profile or
// if two pipelines would collide on OutputPath.
func Plan(in Input) ([]figmodel.Pipeline, error) {
	var pipelines []figmodel.Pipeline
	seenOutputs := make(map[string]figmodel.Resource)

	for _, res := range in.Resources {
		if err := requireFields(res); err != nil {
			return nil, configErr(res, err)
		}
		remote, ok := in.Remotes[remoteRefOf(res)]
		if !ok {
			return nil, configErr(res, apperrors.ErrUnknownRemote)
		}
		profile, ok := in.Profiles[res.ProfileRef]
		if !ok {
			return nil, configErr(res, apperrors.ErrUnknownProfile)
		}

		combos := expandVariants(res.Variants)
		for _, combo := range combos {
			nodePath, err := substitute(res.NodePathTemplate, combo)
			if err != nil {
				return nil, configErr(res, err)
			}
			outputPath, err := substitute(outputTemplate(res, profile), combo)
			if err != nil {
				return nil, configErr(res, err)
			}

			if _, dup := seenOutputs[outputPath]; dup {
				return nil, configErr(res, apperrors.ErrDuplicateOutput)
			}
			seenOutputs[outputPath] = res

			steps, err := stepsFor(profile, remote, nodePath, outputPath)
			if err != nil {
				return nil, configErr(res, err)
			}

			pipelines = append(pipelines, figmodel.Pipeline{
				Resource:    res,
				VariantName: comboLabel(combo),
				NodePath:    nodePath,
				OutputPath:  outputPath,
				Steps:       steps,
			})
		}
	}

	sort.Slice(pipelines, func(i, j int) bool {
		return pipelines[i].Label() < pipelines[j].Label()
	})
	return pipelines, nil
}

// requireFields checks the resource fields a pipeline cannot be built
// without. A manifest author who leaves name/profile/remote blank gets an
// ErrMissingField config error pointing at the declaration, rather than a
// less legible failure deeper in the planner or scheduler.
func requireFields(res figmodel.Resource) error {
	switch {
	case res.Name == "":
		return apperrors.ErrMissingField
	case res.ProfileRef == "":
		return apperrors.ErrMissingField
	case remoteRefOf(res) == "":
		return apperrors.ErrMissingField
	default:
		return nil
	}
}

func remoteRefOf(res figmodel.Resource) string {
	if v, ok := res.Overrides["remote"].(string); ok {
		return v
	}
	return ""
}

func configErr(res figmodel.Resource, err error) error {
	return &apperrors.FigxError{
		Category: apperrors.CategoryConfig,
		Op:       "planner.plan",
		Err:      err,
		Ref:      &apperrors.ManifestRef{File: res.DeclFile, Line: res.DeclLine},
	}
}

// expandVariants computes the Cartesian product of every variant axis's
// value set, returning one map per resulting combination. A resource with
// no variants produces exactly one (empty) combination.
func expandVariants(variants []figmodel.Variant) []map[string]string {
	combos := []map[string]string{{}}
	for _, v := range variants {
		keys := make([]string, 0, len(v.Values))
		for k := range v.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var next []map[string]string
		for _, base := range combos {
			for _, k := range keys {
				merged := make(map[string]string, len(base)+1)
				for bk, bv := range base {
					merged[bk] = bv
				}
				merged[k] = v.Values[k]
				next = append(next, merged)
			}
		}
		if len(next) > 0 {
			combos = next
		}
	}
	return combos
}

func comboLabel(combo map[string]string) string {
	if len(combo) == 0 {
		return ""
	}
	keys := make([]string, 0, len(combo))
	for k := range combo {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, combo[k])
	}
	return strings.Join(parts, ",")
}

func outputTemplate(res figmodel.Resource, p Profile) string {
	if v, ok := res.Overrides["output"].(string); ok {
		return v
	}
	ext := extensionFor(p.Kind)
	return res.PackagePath + "/" + res.Name + ext
}

func extensionFor(kind figmodel.ProfileKind) string {
	switch kind {
	case figmodel.ProfileSVG:
		return ".svg"
	case figmodel.ProfilePNG, figmodel.ProfilePDF:
		return ".png"
	case figmodel.ProfileWebP, figmodel.ProfileAndroidWebP:
		return ".webp"
	case figmodel.ProfileCompose:
		return ".kt"
	case figmodel.ProfileAndroidDrawable:
		return ".xml"
	default:
		return ""
	}
}

// substitute replaces "{key}" placeholders in tmpl with combo's values. An
// unresolved placeholder is a malformed-template config error.
func substitute(tmpl string, combo map[string]string) (string, error) {
	out := tmpl
	for k, v := range combo {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	if strings.Contains(out, "{") && strings.Contains(out, "}") {
		return "", apperrors.ErrMalformedTemplate
	}
	return out, nil
}

// stepsFor instantiates the step chain for profile.Kind, a closed switch
// mirroring core.ProcessVariants's fixed set of built-in steps — no dynamic
// plugin dispatch. The returned StepSpec values are pure data; internal/
// scheduler's executor interprets each Kind against the live Cache,
// ExportResolver, and Transform Kernel.
//
// p.LegacyLoader toggles, for the raster-producing profile kinds, between
// the SVG-source-then-local-render chain (export svg, simplify, render
// locally) and the direct remote-export chain (export the target raster
// format straight from the remote, skipping simplify/render entirely). Both
// chains are preserved side by side per spec.md §9; their differing step
// shapes give them differing fingerprints, so cache entries never collide.
func stepsFor(p Profile, remote figmodel.Remote, nodePath, outputPath string) ([]figmodel.StepSpec, error) {
	write := figmodel.StepSpec{Kind: figmodel.StepWriteFile, Path: outputPath}
	simplify := figmodel.StepSpec{Kind: figmodel.StepSimplifySvg}

	newExport := func(format string) figmodel.StepSpec {
		return figmodel.StepSpec{
			Kind:         figmodel.StepExportFromRemote,
			Format:       format,
			Scale:        p.Scale,
			LegacyLoader: p.LegacyLoader,
		}
	}

	switch p.Kind {
	case figmodel.ProfileSVG:
		return []figmodel.StepSpec{newExport(exportFormatFor(p.Kind)), simplify, write}, nil
	case figmodel.ProfilePNG, figmodel.ProfilePDF:
		if p.LegacyLoader {
			return []figmodel.StepSpec{newExport(legacyExportFormat(p.Kind)), write}, nil
		}
		return []figmodel.StepSpec{newExport(exportFormatFor(p.Kind)), simplify,
			{Kind: figmodel.StepRenderRasterFromSvg, Scale: p.Scale}, write}, nil
	case figmodel.ProfileWebP, figmodel.ProfileAndroidWebP:
		if p.LegacyLoader {
			return []figmodel.StepSpec{newExport(legacyExportFormat(p.Kind)),
				{Kind: figmodel.StepTransformRasterToWebp, Quality: p.Quality}, write}, nil
		}
		return []figmodel.StepSpec{newExport(exportFormatFor(p.Kind)), simplify,
			{Kind: figmodel.StepRenderRasterFromSvg, Scale: p.Scale},
			{Kind: figmodel.StepTransformRasterToWebp, Quality: p.Quality}, write}, nil
	case figmodel.ProfileCompose:
		return []figmodel.StepSpec{newExport(exportFormatFor(p.Kind)), simplify,
			{Kind: figmodel.StepTransformSvgToImageVector, Package: p.Package}, write}, nil
	case figmodel.ProfileAndroidDrawable:
		return []figmodel.StepSpec{newExport(exportFormatFor(p.Kind)), simplify,
			{Kind: figmodel.StepTransformSvgToAndroidDrawable}, write}, nil
	default:
		return nil, apperrors.ErrUnsupportedProfile
	}
}

// legacyExportFormat is the raster format requested directly from the
// remote when legacy_loader skips local rendering. The Figma REST export
// API has no native webp output, so webp-producing profiles still request
// png and convert locally via TransformRasterToWebp; only the simplify and
// render-from-svg steps are skipped.
func legacyExportFormat(kind figmodel.ProfileKind) string {
	if kind == figmodel.ProfilePDF {
		return "pdf"
	}
	return "png"
}

func exportFormatFor(kind figmodel.ProfileKind) string {
	if kind == figmodel.ProfilePDF {
		return "pdf"
	}
	return "svg"
}

// ResolveProfiles converts decoded manifest.ProfileDecl entries (with
// extends already applied) into the Profile map Plan consumes.
func ResolveProfiles(decls map[string]manifest.ProfileDecl) (map[string]Profile, error) {
	out := make(map[string]Profile, len(decls))
	for name := range decls {
		resolved, err := manifest.ResolveProfile(decls, name)
		if err != nil {
			return nil, err
		}
		out[name] = Profile{
			Kind:         figmodel.ProfileKind(resolved.Kind),
			Format:       resolved.Format,
			Scale:        resolved.Scale,
			Quality:      resolved.Quality,
			Package:      resolved.Package,
			LegacyLoader: resolved.LegacyLoader,
		}
	}
	return out, nil
}
