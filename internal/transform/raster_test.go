package transform_test

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/tonykolomeytsev/figx/internal/transform"
)

func TestRenderRasterFromSvg_FallbackProducesScaledPng(t *testing.T) {
	svg, err := transform.SimplifySvg([]byte(`<svg width="10" height="10"><path d="M0 0 L1 1" fill="#FF0000"/></svg>`))
	if err != nil {
		t.Fatalf("SimplifySvg: %v", err)
	}
	out, err := transform.RenderRasterFromSvg(svg, transform.RasterOptions{Scale: 2, UseVips: false})
	if err != nil {
		t.Fatalf("RenderRasterFromSvg: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decoding fallback output as PNG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 20 || b.Dy() != 20 {
		t.Fatalf("got dimensions %dx%d, want 20x20 (10x10 scaled by 2)", b.Dx(), b.Dy())
	}
}

func TestRenderRasterFromSvg_RejectsEmptyInput(t *testing.T) {
	if _, err := transform.RenderRasterFromSvg(nil, transform.RasterOptions{Scale: 1}); err == nil {
		t.Fatal("expected an error for empty input")
	}
}

func TestRenderRasterFromSvg_DefaultsScaleToOne(t *testing.T) {
	svg, err := transform.SimplifySvg([]byte(`<svg width="8" height="8"></svg>`))
	if err != nil {
		t.Fatalf("SimplifySvg: %v", err)
	}
	out, err := transform.RenderRasterFromSvg(svg, transform.RasterOptions{})
	if err != nil {
		t.Fatalf("RenderRasterFromSvg: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decoding output as PNG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 8 || b.Dy() != 8 {
		t.Fatalf("got dimensions %dx%d, want 8x8", b.Dx(), b.Dy())
	}
}
