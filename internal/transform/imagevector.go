package transform

import (
	"bytes"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
)

type vectorData struct {
	Package    string
	Identifier string
	Width      int
	Height     int
	Body       string
}

var imageVectorTemplate = template.Must(template.New("imagevector").Parse(
	`package {{.Package}}

// Code generated from a design asset; DO NOT EDIT.

import androidx.compose.ui.graphics.vector.ImageVector
import androidx.compose.ui.graphics.vector.path
import androidx.compose.ui.graphics.vector.group
import androidx.compose.ui.graphics.Color
import androidx.compose.ui.graphics.StrokeCap
import androidx.compose.ui.graphics.StrokeJoin
import androidx.compose.ui.unit.dp

val {{.Identifier}}: ImageVector = ImageVector.Builder(
    name = "{{.Identifier}}",
    defaultWidth = {{.Width}}.dp,
    defaultHeight = {{.Height}}.dp,
    viewportWidth = {{.Width}}f,
    viewportHeight = {{.Height}}f,
).apply {
{{.Body}}
}.build()
`))

// TransformSvgToImageVector walks a canonical SVG's shape elements and
// renders a Jetpack Compose ImageVector Kotlin source file via text/template,
// preserving path commands, fill/stroke, stroke caps/joins, opacity, and
// transforms, plus the root's width/height attributes. pkgName becomes the
// generated file's package declaration; resourceName is sanitized into a
// valid Kotlin identifier.
func TransformSvgToImageVector(canonicalSvg []byte, pkgName, resourceName string) ([]byte, error) {
	if len(canonicalSvg) == 0 {
		return nil, apperrors.New(apperrors.CategoryTransform, "transform_svg_to_image_vector", apperrors.ErrEmptyInput)
	}
	root, err := parseSvg(canonicalSvg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryTransform, "transform_svg_to_image_vector", err)
	}
	w, h := viewBoxDimensions(root)

	var blocks []string
	for _, p := range walkPaths(root) {
		lines := imageVectorPathBlock(p)
		for i, l := range lines {
			lines[i] = "    " + l
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	data := vectorData{
		Package:    pkgName,
		Identifier: ToPascalIdentifier(resourceName),
		Width:      w,
		Height:     h,
		Body:       strings.Join(blocks, "\n"),
	}

	var buf bytes.Buffer
	if err := imageVectorTemplate.Execute(&buf, data); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryTransform, "transform_svg_to_image_vector.render", err)
	}
	return buf.Bytes(), nil
}

// imageVectorPathBlock renders el's path() call (fill, stroke, caps/joins,
// opacity, geometry), wrapping it in nested group(...) blocks for every
// transform function found on el, outermost function first.
func imageVectorPathBlock(el *svgElement) []string {
	d := pathDataOf(el)
	fill := hexColor(attrOr(el, "fill", ""))
	stroke := hexColor(attrOr(el, "stroke", ""))
	strokeW := attrOr(el, "stroke-width", "1")
	cap := composeStrokeCap(attrOr(el, "stroke-linecap", ""))
	join := composeStrokeJoin(attrOr(el, "stroke-linejoin", ""))
	alpha := opacityOf(el)

	var lines []string
	lines = append(lines, "path(")
	lines = append(lines, "    fill = "+colorExprOrNull(fill)+",")
	lines = append(lines, "    stroke = "+colorExprOrNull(stroke)+",")
	lines = append(lines, "    strokeLineWidth = "+strokeW+"f,")
	if cap != "" {
		lines = append(lines, "    strokeLineCap = "+cap+",")
	}
	if join != "" {
		lines = append(lines, "    strokeLineJoin = "+join+",")
	}
	if alpha != "" {
		lines = append(lines, "    fillAlpha = "+alpha+"f,")
		lines = append(lines, "    strokeAlpha = "+alpha+"f,")
	}
	lines = append(lines, ") {")
	for _, c := range parsePathToCompose(d) {
		lines = append(lines, "    "+c)
	}
	lines = append(lines, "}")

	ops := parseTransformChain(attrOr(el, "transform", ""))
	for i := len(ops) - 1; i >= 0; i-- {
		lines = wrapGroupLines(ops[i], lines)
	}
	return lines
}

func wrapGroupLines(op transformOp, inner []string) []string {
	header := groupHeaderLines(op)
	out := make([]string, 0, len(header)+len(inner)+1)
	out = append(out, header...)
	for _, l := range inner {
		out = append(out, "    "+l)
	}
	out = append(out, "}")
	return out
}

func groupHeaderLines(op transformOp) []string {
	switch op.kind {
	case "translate":
		ty := 0.0
		if op.n > 1 {
			ty = op.b
		}
		return []string{
			"group(",
			"    translationX = " + fnum(op.a) + "f,",
			"    translationY = " + fnum(ty) + "f,",
			") {",
		}
	case "rotate":
		lines := []string{"group(", "    rotation = " + fnum(op.a) + "f,"}
		if op.n > 2 {
			lines = append(lines, "    pivotX = "+fnum(op.b)+"f,", "    pivotY = "+fnum(op.c)+"f,")
		}
		return append(lines, ") {")
	case "scale":
		sy := op.a
		if op.n > 1 {
			sy = op.b
		}
		return []string{
			"group(",
			"    scaleX = " + fnum(op.a) + "f,",
			"    scaleY = " + fnum(sy) + "f,",
			") {",
		}
	default:
		return []string{"group(", ") {"}
	}
}

func composeStrokeCap(v string) string {
	switch v {
	case "round":
		return "StrokeCap.Round"
	case "square":
		return "StrokeCap.Square"
	default:
		return ""
	}
}

func composeStrokeJoin(v string) string {
	switch v {
	case "round":
		return "StrokeJoin.Round"
	case "bevel":
		return "StrokeJoin.Bevel"
	default:
		return ""
	}
}

// opacityOf returns el's "opacity" value as a Kotlin float literal body, or
// "" when opacity is absent or fully opaque (the common case, kept out of
// generated output to match the teacher's minimal-diff style).
func opacityOf(el *svgElement) string {
	v := attrOr(el, "opacity", "")
	if v == "" {
		return ""
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f >= 1 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func colorExprOrNull(hex string) string {
	if hex == "" {
		return "null"
	}
	return "Color(0xFF" + hex + ")"
}

func hexColor(v string) string {
	v = strings.TrimPrefix(v, "#")
	if v == "none" || v == "" {
		return ""
	}
	if len(v) == 3 {
		expanded := make([]byte, 0, 6)
		for _, c := range v {
			expanded = append(expanded, byte(c), byte(c))
		}
		v = string(expanded)
	}
	return strings.ToUpper(v)
}

// ToKebabIdentifier sanitizes name into a filesystem/kebab-case-safe
// identifier: non-alphanumeric runs collapse to a single hyphen, case is
// lowered, and a leading digit gets an underscore prefix.
func ToKebabIdentifier(name string) string {
	var b strings.Builder
	prevHyphen := false
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			prevHyphen = false
		default:
			if !prevHyphen && b.Len() > 0 {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		out = "unnamed"
	}
	if unicode.IsDigit(rune(out[0])) {
		out = "_" + out
	}
	return out
}

// ToPascalIdentifier sanitizes name into a valid PascalCase Kotlin/Go
// identifier, the same non-alphanumeric-collapsing rule as
// ToKebabIdentifier but capitalizing each retained word.
func ToPascalIdentifier(name string) string {
	kebab := ToKebabIdentifier(name)
	parts := strings.Split(kebab, "-")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	out := b.String()
	if out == "" {
		out = "Unnamed"
	}
	if unicode.IsDigit(rune(out[0])) {
		out = "_" + out
	}
	return out
}
