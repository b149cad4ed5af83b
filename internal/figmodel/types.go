// Package figmodel holds the plain data types shared by every component of
// the evaluation engine: Remote, Node, Resource, Variant, Pipeline, Step,
// and Fingerprint, as named in the data model.
package figmodel

import (
	"context"
	"time"
)

// Fingerprint is a 64-bit content hash over (step-kind, stable-parameters,
// dependency-fingerprints). It identifies a cache entry and deduplicates
// in-flight work.
type Fingerprint uint64

// ProfileKind is the closed set of built-in profile kinds.
type ProfileKind string

const (
	ProfilePNG             ProfileKind = "png"
	ProfileSVG             ProfileKind = "svg"
	ProfilePDF             ProfileKind = "pdf"
	ProfileWebP            ProfileKind = "webp"
	ProfileAndroidWebP     ProfileKind = "android-webp"
	ProfileCompose         ProfileKind = "compose"
	ProfileAndroidDrawable ProfileKind = "android-drawable"
)

// TokenProvider resolves a credential for a Remote. Implementations live in
// internal/token.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Name() string
}

// Remote is a logical source of nodes: a Figma file plus credential policy.
// Remotes are immutable for the lifetime of a run.
type Remote struct {
	RemoteID          string // local name
	FileKey           string // opaque remote identifier
	ContainerNodeIDs  []string
	TokenSources      []TokenProvider
}

// NodeRef identifies a location inside a Remote by its ordered path of frame
// names, e.g. "Icons / Puzzle / 24".
type NodeRef struct {
	Remote string
	Path   string
}

// Variant is a named axis value (density, theme, size) that multiplies a
// Resource into several Pipelines.
type Variant struct {
	Name   string
	Values map[string]string // substitutions available to name templates
}

// Resource is a single user-declared import unit.
type Resource struct {
	PackagePath     string // directory of the declaring manifest
	Name            string
	ProfileRef      string
	NodePathTemplate string
	Overrides       map[string]any
	Variants        []Variant

	DeclFile string // manifest file this resource was declared in
	DeclLine int    // 1-based position among that file's [[resources]] entries, for diagnostics
}

// Label returns the Bazel-like "//path/to/pkg:name" identifier for r.
func (r Resource) Label() string {
	return "//" + r.PackagePath + ":" + r.Name
}

// StepKind is the closed enum of pipeline step kinds.
type StepKind string

const (
	StepExportFromRemote        StepKind = "export_from_remote"
	StepRenderRasterFromSvg     StepKind = "render_raster_from_svg"
	StepTransformRasterToWebp   StepKind = "transform_raster_to_webp"
	StepSimplifySvg             StepKind = "simplify_svg"
	StepTransformSvgToImageVector StepKind = "transform_svg_to_image_vector"
	StepTransformSvgToAndroidDrawable StepKind = "transform_svg_to_android_drawable"
	StepWriteFile                StepKind = "write_file"
)

// StepSpec is a closed, tagged-variant description of one pipeline step.
// Only the typed parameter fields relevant to Kind are populated (an
// export step sets Format, Scale and LegacyLoader together).
// This mirrors core.Step in the teacher repo but as a serializable value
// rather than an interface, since fingerprinting needs to hash the
// parameters independent of behavior.
type StepSpec struct {
	Kind StepKind

	// ExportFromRemote
	Format       string
	Scale        float64
	LegacyLoader bool

	// RenderRasterFromSvg / uses Scale above

	// TransformRasterToWebp
	Quality int

	// TransformSvgToImageVector
	Package string

	// WriteFile
	Path string
}

// Pipeline is a totally ordered, acyclic sequence of Steps specializing one
// (Resource, Variant) combination. Steps are closed tagged-variant values
// rather than an interface: the Planner can fingerprint and compare a
// pipeline without running it, and internal/scheduler supplies the one
// executor that interprets each StepSpec.Kind.
type Pipeline struct {
	Resource    Resource
	VariantName string
	NodePath    string // after template substitution
	OutputPath  string // after template substitution
	Steps       []StepSpec
}

// Label identifies the pipeline for logging/diagnostics.
func (p Pipeline) Label() string {
	if p.VariantName == "" {
		return p.Resource.Label()
	}
	return p.Resource.Label() + "[" + p.VariantName + "]"
}

// PipelineResult is returned once a Pipeline finishes, successfully or not.
type PipelineResult struct {
	Pipeline       Pipeline
	Err            error
	BytesWritten   int64
	Duration       time.Duration
	StepTimings    map[string]time.Duration
}
