// Package token implements the ordered credential-source chain described in
// SPEC_FULL.md §6: each Remote carries a slice of TokenProvider, tried in
// order until one yields a non-empty value.
package token

import (
	"context"
	"os"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
	"github.com/tonykolomeytsev/figx/internal/figmodel"
)

// EnvProvider reads a credential from an environment variable, defaulting to
// FIGMA_PERSONAL_TOKEN when the manifest names no variable explicitly.
type EnvProvider struct {
	Var string
}

// DefaultEnvVar is used when a Remote's manifest entry declares no explicit
// token variable name.
const DefaultEnvVar = "FIGMA_PERSONAL_TOKEN"

// NewEnvProvider returns an EnvProvider reading v, or DefaultEnvVar if v is
// empty.
func NewEnvProvider(v string) EnvProvider {
	if v == "" {
		v = DefaultEnvVar
	}
	return EnvProvider{Var: v}
}

func (p EnvProvider) Name() string { return "env:" + p.Var }

func (p EnvProvider) Token(ctx context.Context) (string, error) {
	return os.Getenv(p.Var), nil
}

var _ figmodel.TokenProvider = EnvProvider{}

// Resolve tries each source in order and returns the first non-empty token.
// It surfaces apperrors.ErrNoToken, category CategoryCredential, when every
// source yields nothing.
func Resolve(ctx context.Context, sources []figmodel.TokenProvider) (string, error) {
	for _, src := range sources {
		tok, err := src.Token(ctx)
		if err != nil {
			continue
		}
		if tok != "" {
			return tok, nil
		}
	}
	return "", apperrors.New(apperrors.CategoryCredential, "token.resolve", apperrors.ErrNoToken)
}

// Verify checks that sources resolve to a usable token without performing
// any network call, backing the "figx auth" subcommand.
func Verify(ctx context.Context, sources []figmodel.TokenProvider) error {
	_, err := Resolve(ctx, sources)
	return err
}
