// Package manifest decodes the TOML configuration surface described in
// SPEC_FULL.md §6: a root manifest declaring remotes and named profiles,
// and per-package manifests declaring resources, mirroring the flat-struct,
// safe-defaults shape of config.Config.
package manifest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
	"github.com/tonykolomeytsev/figx/internal/figmodel"
)

// RemoteDecl is the raw TOML shape of a [remotes.<id>] table.
type RemoteDecl struct {
	FileKey          string   `mapstructure:"file_key" toml:"file_key"`
	ContainerNodeIDs []string `mapstructure:"container_node_ids" toml:"container_node_ids"`
	TokenVar         string   `mapstructure:"token_var" toml:"token_var"`
}

// ProfileDecl is the raw TOML shape of a [profiles.<id>] table.
type ProfileDecl struct {
	Kind         string  `mapstructure:"kind" toml:"kind"`
	Extends      string  `mapstructure:"extends" toml:"extends"`
	Format       string  `mapstructure:"format" toml:"format"`
	Scale        float64 `mapstructure:"scale" toml:"scale"`
	Quality      int     `mapstructure:"quality" toml:"quality"`
	Package      string  `mapstructure:"package" toml:"package"`
	LegacyLoader bool    `mapstructure:"legacy_loader" toml:"legacy_loader"`
}

// ResourceDecl is the raw TOML shape of an [[resources]] array entry.
type ResourceDecl struct {
	Name     string            `mapstructure:"name" toml:"name"`
	Remote   string            `mapstructure:"remote" toml:"remote"`
	Profile  string            `mapstructure:"profile" toml:"profile"`
	NodePath string            `mapstructure:"node_path" toml:"node_path"`
	Output   string            `mapstructure:"output" toml:"output"`
	Variants []VariantDecl     `mapstructure:"variants" toml:"variants"`
	Overrides map[string]any   `mapstructure:"overrides" toml:"overrides"`
}

// VariantDecl is the raw TOML shape of a resource's variant axis entry.
type VariantDecl struct {
	Name   string            `mapstructure:"name" toml:"name"`
	Values map[string]string `mapstructure:"values" toml:"values"`
}

// SettingsDecl is the raw TOML shape of the optional [settings] table: the
// same worker-pool and retry knobs config.Config exposed, rescoped from a
// process-wide struct to a per-workspace manifest declaration. Every field
// left at its zero value falls back to the runtime default applied by
// Defaults, so an absent [settings] table behaves exactly as if it had been
// written out with every field at its default.
type SettingsDecl struct {
	WorkerCount    int     `mapstructure:"worker_count" toml:"worker_count"`
	MaxRetries     int     `mapstructure:"max_retries" toml:"max_retries"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" toml:"request_timeout_seconds"`
	RatePerSecond  float64 `mapstructure:"rate_per_second" toml:"rate_per_second"`
}

// Defaults fills every zero-valued field of d with the built-in production
// default and returns the result. CLI flags still win over either, since
// callers only consult these defaults where the flag was left unset.
func (d SettingsDecl) Defaults() SettingsDecl {
	if d.WorkerCount == 0 {
		d.WorkerCount = 0 // resolved by the caller to runtime.NumCPU()
	}
	if d.MaxRetries == 0 {
		d.MaxRetries = 5
	}
	if d.RequestTimeoutSeconds == 0 {
		d.RequestTimeoutSeconds = 30
	}
	if d.RatePerSecond == 0 {
		d.RatePerSecond = 10
	}
	return d
}

// RootManifest is the decoded top-level manifest (conventionally figx.toml
// at the repository root): remotes, reusable named profiles, and an optional
// workspace-wide settings table.
type RootManifest struct {
	Remotes  map[string]RemoteDecl  `mapstructure:"remotes" toml:"remotes"`
	Profiles map[string]ProfileDecl `mapstructure:"profiles" toml:"profiles"`
	Settings SettingsDecl           `mapstructure:"settings" toml:"settings"`
}

// PackageManifest is the decoded per-directory manifest declaring the
// resources a source tree package imports.
type PackageManifest struct {
	Resources []ResourceDecl `mapstructure:"resources" toml:"resources"`
}

// LoadRoot reads and decodes the root manifest file at path.
func LoadRoot(path string) (*RootManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "manifest.load_root", err)
	}
	var generic map[string]any
	if err := toml.Unmarshal(raw, &generic); err != nil {
		return nil, apperrors.New(apperrors.CategoryConfig, "manifest.load_root", err)
	}
	var m RootManifest
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &m,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "manifest.load_root", err)
	}
	if err := dec.Decode(generic); err != nil {
		return nil, apperrors.New(apperrors.CategoryConfig, "manifest.load_root", err)
	}
	return &m, nil
}

// LoadPackage reads and decodes a package manifest file at path.
func LoadPackage(path string) (*PackageManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "manifest.load_package", err)
	}
	var generic map[string]any
	if err := toml.Unmarshal(raw, &generic); err != nil {
		return nil, apperrors.New(apperrors.CategoryConfig, "manifest.load_package", err)
	}
	var m PackageManifest
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &m,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "manifest.load_package", err)
	}
	if err := dec.Decode(generic); err != nil {
		return nil, apperrors.New(apperrors.CategoryConfig, "manifest.load_package", err)
	}
	return &m, nil
}

// ResolveProfile applies a single level of `extends`: a named profile may
// extend exactly one other named profile, inheriting any field the child
// leaves at its zero value. Deeper chains are rejected as a config error,
// matching the "single-level extends" contract.
func ResolveProfile(profiles map[string]ProfileDecl, name string) (ProfileDecl, error) {
	p, ok := profiles[name]
	if !ok {
		return ProfileDecl{}, apperrors.New(apperrors.CategoryConfig, "manifest.resolve_profile",
			apperrors.ErrUnknownProfile)
	}
	if p.Extends == "" {
		return p, nil
	}
	base, ok := profiles[p.Extends]
	if !ok {
		return ProfileDecl{}, apperrors.New(apperrors.CategoryConfig, "manifest.resolve_profile",
			apperrors.ErrUnknownProfile)
	}
	if base.Extends != "" {
		return ProfileDecl{}, apperrors.New(apperrors.CategoryConfig, "manifest.resolve_profile",
			apperrors.ErrMalformedTemplate)
	}
	merged := base
	merged.Kind = firstNonZeroStr(p.Kind, base.Kind)
	if p.Format != "" {
		merged.Format = p.Format
	}
	if p.Scale != 0 {
		merged.Scale = p.Scale
	}
	if p.Quality != 0 {
		merged.Quality = p.Quality
	}
	if p.Package != "" {
		merged.Package = p.Package
	}
	merged.LegacyLoader = p.LegacyLoader || base.LegacyLoader
	return merged, nil
}

func firstNonZeroStr(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// ToRemote converts a decoded RemoteDecl plus its manifest-declared id into
// a figmodel.Remote, wiring the token source chain. tokenSources is supplied
// by the caller (internal/token) since manifest must not import it — token
// is a boundary concern, manifest is pure data decoding.
func (d RemoteDecl) ToRemote(id string, sources []figmodel.TokenProvider) figmodel.Remote {
	return figmodel.Remote{
		RemoteID:         id,
		FileKey:          d.FileKey,
		ContainerNodeIDs: d.ContainerNodeIDs,
		TokenSources:     sources,
	}
}

// PackagePath derives a Resource's manifest-relative package path from the
// directory containing its declaring manifest file, in the Bazel-like label
// syntax ("path/to/pkg") used by Resource.Label.
func PackagePath(manifestPath, repoRoot string) (string, error) {
	rel, err := filepath.Rel(repoRoot, filepath.Dir(manifestPath))
	if err != nil {
		return "", apperrors.Wrap(apperrors.CategoryConfig, "manifest.package_path", err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "", nil
	}
	return rel, nil
}

// ToResource converts a decoded ResourceDecl into a figmodel.Resource, given
// its declaring manifest's package path and line metadata for diagnostics.
func (d ResourceDecl) ToResource(packagePath, declFile string, declLine int) figmodel.Resource {
	variants := make([]figmodel.Variant, 0, len(d.Variants))
	for _, v := range d.Variants {
		variants = append(variants, figmodel.Variant{Name: v.Name, Values: v.Values})
	}
	nodePath := d.NodePath
	if nodePath == "" {
		nodePath = strings.ReplaceAll(d.Name, "_", " ")
	}
	overrides := make(map[string]any, len(d.Overrides)+1)
	for k, v := range d.Overrides {
		overrides[k] = v
	}
	if d.Remote != "" {
		overrides["remote"] = d.Remote
	}
	if d.Output != "" {
		overrides["output"] = d.Output
	}
	return figmodel.Resource{
		PackagePath:      packagePath,
		Name:             d.Name,
		ProfileRef:       d.Profile,
		NodePathTemplate: nodePath,
		Overrides:        overrides,
		Variants:         variants,
		DeclFile:         declFile,
		DeclLine:         declLine,
	}
}
