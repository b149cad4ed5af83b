package main

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
	"github.com/tonykolomeytsev/figx/internal/figmodel"
	"github.com/tonykolomeytsev/figx/internal/manifest"
	"github.com/tonykolomeytsev/figx/internal/planner"
	"github.com/tonykolomeytsev/figx/internal/token"
)

// rootManifestName is the conventional name of the workspace-level manifest;
// packageManifestName is the per-directory manifest naming the resources a
// package imports, mirroring Bazel's WORKSPACE/BUILD split.
const (
	rootManifestName    = "figx.toml"
	packageManifestName = "manifest.toml"
)

// workspace bundles everything discovered from the manifest tree, ready to
// hand to planner.Plan.
type workspace struct {
	root      string
	remotes   map[string]figmodel.Remote
	profiles  map[string]planner.Profile
	resources []figmodel.Resource
	settings  manifest.SettingsDecl
}

// loadWorkspace walks root for figx.toml and every nested manifest.toml,
// decoding remotes, profiles, and resources into the Planner's input shape.
func loadWorkspace(root string) (*workspace, error) {
	rootPath := filepath.Join(root, rootManifestName)
	rootManifest, err := manifest.LoadRoot(rootPath)
	if err != nil {
		return nil, err
	}

	remotes := make(map[string]figmodel.Remote, len(rootManifest.Remotes))
	for id, decl := range rootManifest.Remotes {
		sources := []figmodel.TokenProvider{token.NewEnvProvider(decl.TokenVar)}
		remotes[id] = decl.ToRemote(id, sources)
	}

	profiles, err := planner.ResolveProfiles(rootManifest.Profiles)
	if err != nil {
		return nil, err
	}

	var resources []figmodel.Resource
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != packageManifestName {
			return nil
		}
		pkgPath, err := manifest.PackagePath(path, root)
		if err != nil {
			return err
		}
		pkg, err := manifest.LoadPackage(path)
		if err != nil {
			return err
		}
		for i, decl := range pkg.Resources {
			resources = append(resources, decl.ToResource(pkgPath, path, i+1))
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "workspace.load", err)
	}

	settings := rootManifest.Settings.Defaults()

	return &workspace{root: root, remotes: remotes, profiles: profiles, resources: resources, settings: settings}, nil
}

// plan expands the workspace's declared resources into the full pipeline
// set, in deterministic label order.
func (w *workspace) plan() ([]figmodel.Pipeline, error) {
	return planner.Plan(planner.Input{Resources: w.resources, Remotes: w.remotes, Profiles: w.profiles})
}

// matchesPattern implements the Bazel-like target pattern syntax named in
// SPEC_FULL.md: "//path/to/pkg:name" an exact resource, "//path/to/pkg:all"
// every resource in one package, "//..." every resource in the workspace,
// and ":name" any resource named name regardless of package.
func matchesPattern(label, pattern string) bool {
	if pattern == "//..." {
		return true
	}
	pkgPath, name, hasPkg := strings.Cut(strings.TrimPrefix(label, "//"), ":")
	if !hasPkg {
		return false
	}
	if strings.HasPrefix(pattern, ":") {
		return name == strings.TrimPrefix(pattern, ":")
	}
	patPkg, patName, ok := strings.Cut(strings.TrimPrefix(pattern, "//"), ":")
	if !ok {
		return false
	}
	if patPkg != pkgPath {
		return false
	}
	return patName == "all" || patName == name
}

// selectPipelines returns the pipelines whose Resource.Label matches any of
// patterns. An empty patterns list selects everything ("//...").
func selectPipelines(pipelines []figmodel.Pipeline, patterns []string) []figmodel.Pipeline {
	if len(patterns) == 0 {
		patterns = []string{"//..."}
	}
	var out []figmodel.Pipeline
	for _, p := range pipelines {
		label := p.Resource.Label()
		for _, pat := range patterns {
			if matchesPattern(label, pat) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
