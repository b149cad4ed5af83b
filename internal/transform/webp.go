package transform

import (
	"github.com/davidbyttow/govips/v2/vips"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
)

// TransformRasterToWebp re-encodes a raster image (PNG/JPEG bytes) as WebP
// at the given quality, through govips — the same backend used for
// RenderRasterFromSvg. quality == 100 selects a lossless encode, the branch
// named explicitly in SPEC_FULL.md §4.E.
func TransformRasterToWebp(raster []byte, quality int) ([]byte, error) {
	if len(raster) == 0 {
		return nil, apperrors.New(apperrors.CategoryTransform, "transform_raster_to_webp", apperrors.ErrEmptyInput)
	}
	if quality <= 0 || quality > 100 {
		return nil, apperrors.New(apperrors.CategoryTransform, "transform_raster_to_webp", apperrors.ErrInvalidDimensions)
	}
	ensureVips()
	img, err := vips.NewImageFromBuffer(raster)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryTransform, "transform_raster_to_webp.decode", err)
	}
	defer img.Close()

	params := vips.NewWebpExportParams()
	params.Quality = quality
	params.Lossless = quality == 100

	out, _, err := img.ExportWebp(params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryTransform, "transform_raster_to_webp.encode", err)
	}
	return out, nil
}
