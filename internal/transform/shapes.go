package transform

import (
	"fmt"
	"strconv"
	"strings"
)

// pathDataOf returns the SVG path-data ("d" attribute) equivalent of el,
// synthesizing one for the primitive shape elements (rect/circle/ellipse/
// polygon/polyline/line) that walkPaths collects but that carry no "d"
// attribute of their own. Without this, every primitive-shape icon loses
// its geometry on export since only <path> elements have usable "d" data.
func pathDataOf(el *svgElement) string {
	switch el.Name.Local {
	case "path":
		return attrOr(el, "d", "")
	case "rect":
		return rectPathData(el)
	case "circle":
		return circlePathData(el)
	case "ellipse":
		return ellipsePathData(el)
	case "polygon":
		return polyPathData(el, true)
	case "polyline":
		return polyPathData(el, false)
	case "line":
		return linePathData(el)
	default:
		return ""
	}
}

func floatAttr(el *svgElement, name string, def float64) float64 {
	v := attrOr(el, name, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// rectPathData converts x/y/width/height(/rx/ry) into an equivalent closed
// path, rendering the four-arc rounded-corner form when a radius is given.
func rectPathData(el *svgElement) string {
	x := floatAttr(el, "x", 0)
	y := floatAttr(el, "y", 0)
	w := floatAttr(el, "width", 0)
	h := floatAttr(el, "height", 0)
	if w <= 0 || h <= 0 {
		return ""
	}
	rx := floatAttr(el, "rx", 0)
	ry := floatAttr(el, "ry", 0)
	if rx <= 0 && ry > 0 {
		rx = ry
	}
	if ry <= 0 && rx > 0 {
		ry = rx
	}
	if rx <= 0 || ry <= 0 {
		return fmt.Sprintf("M%g,%g H%g V%g H%g Z", x, y, x+w, y+h, x)
	}
	return fmt.Sprintf(
		"M%g,%g H%g A%g,%g 0 0 1 %g,%g V%g A%g,%g 0 0 1 %g,%g H%g A%g,%g 0 0 1 %g,%g V%g A%g,%g 0 0 1 %g,%g Z",
		x+rx, y,
		x+w-rx, rx, ry, x+w, y+ry,
		y+h-ry, rx, ry, x+w-rx, y+h,
		x+rx, rx, ry, x, y+h-ry,
		y+ry, rx, ry, x+rx, y,
	)
}

// circlePathData renders two half-arcs, the standard trick for expressing a
// full circle in a "d" string (a single arc command cannot close a circle
// since its start and end point would coincide).
func circlePathData(el *svgElement) string {
	cx := floatAttr(el, "cx", 0)
	cy := floatAttr(el, "cy", 0)
	r := floatAttr(el, "r", 0)
	if r <= 0 {
		return ""
	}
	return fmt.Sprintf("M%g,%g A%g,%g 0 1 0 %g,%g A%g,%g 0 1 0 %g,%g Z",
		cx-r, cy, r, r, cx+r, cy, r, r, cx-r, cy)
}

func ellipsePathData(el *svgElement) string {
	cx := floatAttr(el, "cx", 0)
	cy := floatAttr(el, "cy", 0)
	rx := floatAttr(el, "rx", 0)
	ry := floatAttr(el, "ry", 0)
	if rx <= 0 || ry <= 0 {
		return ""
	}
	return fmt.Sprintf("M%g,%g A%g,%g 0 1 0 %g,%g A%g,%g 0 1 0 %g,%g Z",
		cx-rx, cy, rx, ry, cx+rx, cy, rx, ry, cx-rx, cy)
}

func polyPathData(el *svgElement, closed bool) string {
	pts := strings.FieldsFunc(attrOr(el, "points", ""), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(pts) < 4 || len(pts)%2 != 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i+1 < len(pts); i += 2 {
		if i == 0 {
			fmt.Fprintf(&b, "M%s,%s ", pts[i], pts[i+1])
		} else {
			fmt.Fprintf(&b, "L%s,%s ", pts[i], pts[i+1])
		}
	}
	if closed {
		b.WriteString("Z")
	}
	return strings.TrimSpace(b.String())
}

func linePathData(el *svgElement) string {
	x1 := attrOr(el, "x1", "0")
	y1 := attrOr(el, "y1", "0")
	x2 := attrOr(el, "x2", "0")
	y2 := attrOr(el, "y2", "0")
	return fmt.Sprintf("M%s,%s L%s,%s", x1, y1, x2, y2)
}
