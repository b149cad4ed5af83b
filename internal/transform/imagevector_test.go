package transform_test

import (
	"bytes"
	"testing"

	"github.com/tonykolomeytsev/figx/internal/transform"
)

func TestToKebabIdentifier(t *testing.T) {
	cases := map[string]string{
		"Environment / Puzzle": "environment-puzzle",
		"puzzle_24":            "puzzle-24",
		"  leading spaces":     "leading-spaces",
		"24px":                 "_24px",
		"":                     "unnamed",
	}
	for in, want := range cases {
		if got := transform.ToKebabIdentifier(in); got != want {
			t.Errorf("ToKebabIdentifier(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToPascalIdentifier(t *testing.T) {
	cases := map[string]string{
		"Environment / Puzzle": "EnvironmentPuzzle",
		"puzzle_24":            "Puzzle24",
		"24px":                 "_24px",
	}
	for in, want := range cases {
		if got := transform.ToPascalIdentifier(in); got != want {
			t.Errorf("ToPascalIdentifier(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTransformSvgToImageVector_RendersPackageAndIdentifier(t *testing.T) {
	svg, err := transform.SimplifySvg([]byte(`<svg width="24" height="24"><path d="M0 0 L1 1" fill="#112233"/></svg>`))
	if err != nil {
		t.Fatalf("SimplifySvg: %v", err)
	}
	out, err := transform.TransformSvgToImageVector(svg, "com.example.icons", "Environment / Puzzle")
	if err != nil {
		t.Fatalf("TransformSvgToImageVector: %v", err)
	}
	if !bytes.Contains(out, []byte("package com.example.icons")) {
		t.Fatalf("expected package declaration in output:\n%s", out)
	}
	if !bytes.Contains(out, []byte("EnvironmentPuzzle")) {
		t.Fatalf("expected sanitized identifier in output:\n%s", out)
	}
	if !bytes.Contains(out, []byte("112233")) {
		t.Fatalf("expected fill color preserved in output:\n%s", out)
	}
}

func TestTransformSvgToImageVector_RejectsEmptyInput(t *testing.T) {
	if _, err := transform.TransformSvgToImageVector(nil, "pkg", "name"); err == nil {
		t.Fatal("expected an error for empty input")
	}
}

func TestTransformSvgToImageVector_EmitsRealPathCommands(t *testing.T) {
	svg, err := transform.SimplifySvg([]byte(`<svg width="24" height="24"><path d="M1 2 L3 4 C5 6 7 8 9 10 Z" fill="#000000"/></svg>`))
	if err != nil {
		t.Fatalf("SimplifySvg: %v", err)
	}
	out, err := transform.TransformSvgToImageVector(svg, "com.example.icons", "arrow")
	if err != nil {
		t.Fatalf("TransformSvgToImageVector: %v", err)
	}
	for _, want := range []string{"moveTo(1f, 2f)", "lineTo(3f, 4f)", "curveTo(5f, 6f, 7f, 8f, 9f, 10f)", "close()"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Fatalf("expected %q drawing call in output:\n%s", want, out)
		}
	}
	if bytes.Contains(out, []byte("// M1 2")) {
		t.Fatalf("path data should not be emitted as a dead comment:\n%s", out)
	}
}

func TestTransformSvgToImageVector_PreservesStrokeCapJoinAndOpacity(t *testing.T) {
	svg, err := transform.SimplifySvg([]byte(`<svg width="24" height="24"><path d="M0 0 L1 1" stroke="#000000" stroke-linecap="round" stroke-linejoin="bevel" opacity="0.5"/></svg>`))
	if err != nil {
		t.Fatalf("SimplifySvg: %v", err)
	}
	out, err := transform.TransformSvgToImageVector(svg, "com.example.icons", "arrow")
	if err != nil {
		t.Fatalf("TransformSvgToImageVector: %v", err)
	}
	for _, want := range []string{"strokeLineCap = StrokeCap.Round", "strokeLineJoin = StrokeJoin.Bevel", "fillAlpha = 0.5f", "strokeAlpha = 0.5f"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestTransformSvgToImageVector_WrapsTransformedPathInGroup(t *testing.T) {
	svg, err := transform.SimplifySvg([]byte(`<svg width="24" height="24"><path d="M0 0 L1 1" transform="translate(10,20)"/></svg>`))
	if err != nil {
		t.Fatalf("SimplifySvg: %v", err)
	}
	out, err := transform.TransformSvgToImageVector(svg, "com.example.icons", "arrow")
	if err != nil {
		t.Fatalf("TransformSvgToImageVector: %v", err)
	}
	if !bytes.Contains(out, []byte("group(")) {
		t.Fatalf("expected the path wrapped in a group() block:\n%s", out)
	}
	if !bytes.Contains(out, []byte("translationX = 10f")) || !bytes.Contains(out, []byte("translationY = 20f")) {
		t.Fatalf("expected translate(10,20) carried onto the group:\n%s", out)
	}
}

func TestTransformSvgToImageVector_RendersPathDataForPrimitiveShapes(t *testing.T) {
	svg, err := transform.SimplifySvg([]byte(`<svg width="10" height="10"><circle cx="5" cy="5" r="5"/></svg>`))
	if err != nil {
		t.Fatalf("SimplifySvg: %v", err)
	}
	out, err := transform.TransformSvgToImageVector(svg, "com.example.icons", "dot")
	if err != nil {
		t.Fatalf("TransformSvgToImageVector: %v", err)
	}
	if !bytes.Contains(out, []byte("moveTo(")) {
		t.Fatalf("expected a circle to synthesize drawable path commands:\n%s", out)
	}
}
