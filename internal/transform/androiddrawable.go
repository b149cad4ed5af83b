package transform

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
)

// androidVector mirrors the <vector>/<path>/<group> XML shape Android
// expects from a drawable resource. A path carrying a transform is lifted
// into its own <group>, since Android vector drawables express transforms
// at the group level rather than per-path.
type androidVector struct {
	XMLName xml.Name       `xml:"vector"`
	Xmlns   string         `xml:"xmlns:android,attr"`
	Width   string         `xml:"android:width,attr"`
	Height  string         `xml:"android:height,attr"`
	ViewW   string         `xml:"android:viewportWidth,attr"`
	ViewH   string         `xml:"android:viewportHeight,attr"`
	Paths   []androidPath  `xml:"path"`
	Groups  []androidGroup `xml:"group"`
}

type androidGroup struct {
	Rotation   string      `xml:"android:rotation,attr,omitempty"`
	PivotX     string      `xml:"android:pivotX,attr,omitempty"`
	PivotY     string      `xml:"android:pivotY,attr,omitempty"`
	ScaleX     string      `xml:"android:scaleX,attr,omitempty"`
	ScaleY     string      `xml:"android:scaleY,attr,omitempty"`
	TranslateX string      `xml:"android:translateX,attr,omitempty"`
	TranslateY string      `xml:"android:translateY,attr,omitempty"`
	Path       androidPath `xml:"path"`
}

type androidPath struct {
	FillColor      string `xml:"android:fillColor,attr,omitempty"`
	StrokeColor    string `xml:"android:strokeColor,attr,omitempty"`
	StrokeWidth    string `xml:"android:strokeWidth,attr,omitempty"`
	StrokeLineCap  string `xml:"android:strokeLineCap,attr,omitempty"`
	StrokeLineJoin string `xml:"android:strokeLineJoin,attr,omitempty"`
	FillAlpha      string `xml:"android:fillAlpha,attr,omitempty"`
	StrokeAlpha    string `xml:"android:strokeAlpha,attr,omitempty"`
	PathData       string `xml:"android:pathData,attr"`
}

// TransformSvgToAndroidDrawable reuses the same canonical-SVG shape walk as
// TransformSvgToImageVector and emits an Android vector drawable XML
// document via encoding/xml, so the two transforms share fingerprint inputs
// (SPEC_FULL.md §4.E's minimality note). Primitive shapes (rect/circle/
// ellipse/polygon/polyline/line) are converted to path data rather than
// dropped, and stroke caps/joins, opacity, and transforms carry over.
func TransformSvgToAndroidDrawable(canonicalSvg []byte) ([]byte, error) {
	if len(canonicalSvg) == 0 {
		return nil, apperrors.New(apperrors.CategoryTransform, "transform_svg_to_android_drawable", apperrors.ErrEmptyInput)
	}
	root, err := parseSvg(canonicalSvg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryTransform, "transform_svg_to_android_drawable", err)
	}
	w, h := viewBoxDimensions(root)

	vec := androidVector{
		Xmlns:  "http://schemas.android.com/apk/res/android",
		Width:  fmt.Sprintf("%ddp", w),
		Height: fmt.Sprintf("%ddp", h),
		ViewW:  fmt.Sprintf("%d", w),
		ViewH:  fmt.Sprintf("%d", h),
	}
	for _, p := range walkPaths(root) {
		d := pathDataOf(p)
		if d == "" {
			continue
		}
		ap := androidPath{
			FillColor:      androidColor(attrOr(p, "fill", "")),
			StrokeColor:    androidColor(attrOr(p, "stroke", "")),
			StrokeWidth:    attrOr(p, "stroke-width", ""),
			StrokeLineCap:  androidLineCap(attrOr(p, "stroke-linecap", "")),
			StrokeLineJoin: androidLineJoin(attrOr(p, "stroke-linejoin", "")),
			FillAlpha:      androidAlpha(attrOr(p, "opacity", "")),
			StrokeAlpha:    androidAlpha(attrOr(p, "opacity", "")),
			PathData:       d,
		}
		if tr, ok := parseSingleTransform(attrOr(p, "transform", "")); ok {
			vec.Groups = append(vec.Groups, androidGroup{
				Rotation: tr.rotation, PivotX: tr.pivotX, PivotY: tr.pivotY,
				ScaleX: tr.scaleX, ScaleY: tr.scaleY,
				TranslateX: tr.translateX, TranslateY: tr.translateY,
				Path: ap,
			})
			continue
		}
		vec.Paths = append(vec.Paths, ap)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "    ")
	if err := enc.Encode(vec); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryTransform, "transform_svg_to_android_drawable.render", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func androidColor(v string) string {
	hc := hexColor(v)
	if hc == "" {
		return ""
	}
	return "#FF" + hc
}

func androidLineCap(v string) string {
	switch v {
	case "round", "square", "butt":
		return v
	default:
		return ""
	}
}

func androidLineJoin(v string) string {
	switch v {
	case "round", "bevel", "miter":
		return v
	default:
		return ""
	}
}

func androidAlpha(v string) string {
	if v == "" {
		return ""
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f >= 1 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
