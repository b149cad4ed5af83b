package token_test

import (
	"context"
	"testing"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
	"github.com/tonykolomeytsev/figx/internal/figmodel"
	"github.com/tonykolomeytsev/figx/internal/token"
)

type staticProvider struct {
	name string
	val  string
	err  error
}

func (p staticProvider) Name() string { return p.name }
func (p staticProvider) Token(ctx context.Context) (string, error) {
	return p.val, p.err
}

func TestResolve_FirstNonEmptyWins(t *testing.T) {
	sources := []figmodel.TokenProvider{
		staticProvider{name: "a", val: ""},
		staticProvider{name: "b", val: "secret"},
		staticProvider{name: "c", val: "unreachable"},
	}
	got, err := token.Resolve(context.Background(), sources)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "secret" {
		t.Fatalf("got %q, want %q", got, "secret")
	}
}

func TestResolve_SkipsErroringSources(t *testing.T) {
	sources := []figmodel.TokenProvider{
		staticProvider{name: "broken", err: context.DeadlineExceeded},
		staticProvider{name: "ok", val: "fallback"},
	}
	got, err := token.Resolve(context.Background(), sources)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "fallback" {
		t.Fatalf("got %q, want %q", got, "fallback")
	}
}

func TestResolve_NoSourcesYieldsCredentialError(t *testing.T) {
	_, err := token.Resolve(context.Background(), nil)
	if err == nil {
		t.Fatal("expected an error when no sources are configured")
	}
	if !apperrors.IsCategory(err, apperrors.CategoryCredential) {
		t.Fatalf("expected CategoryCredential, got %v", err)
	}
}

func TestEnvProvider_DefaultsVarName(t *testing.T) {
	p := token.NewEnvProvider("")
	if p.Var != token.DefaultEnvVar {
		t.Fatalf("got %q, want %q", p.Var, token.DefaultEnvVar)
	}
}

func TestEnvProvider_ReadsNamedVariable(t *testing.T) {
	t.Setenv("FIGX_TEST_TOKEN", "abc123")
	p := token.NewEnvProvider("FIGX_TEST_TOKEN")
	got, err := p.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != "abc123" {
		t.Fatalf("got %q, want %q", got, "abc123")
	}
}

func TestVerify_PropagatesResolveError(t *testing.T) {
	if err := token.Verify(context.Background(), nil); err == nil {
		t.Fatal("expected Verify to fail with no sources")
	}
}
