package transform

import (
	"fmt"
	"strconv"
	"strings"
)

// pathScanner tokenizes an SVG path-data or transform-function argument
// string: a loose grammar of command letters, signed decimals, and
// comma/whitespace separators where the separator itself is optional
// between a sign and the previous number.
type pathScanner struct {
	s   string
	pos int
}

func (p *pathScanner) skipSep() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ',', ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *pathScanner) peekCommand() (byte, bool) {
	p.skipSep()
	if p.pos >= len(p.s) {
		return 0, false
	}
	c := p.s[p.pos]
	if strings.IndexByte("MmLlHhVvCcSsQqTtAaZz", c) >= 0 {
		return c, true
	}
	return 0, false
}

func (p *pathScanner) nextCommand() byte {
	c, _ := p.peekCommand()
	p.pos++
	return c
}

func (p *pathScanner) hasNumber() bool {
	p.skipSep()
	if p.pos >= len(p.s) {
		return false
	}
	c := p.s[p.pos]
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9')
}

func (p *pathScanner) nextNumber() (float64, bool) {
	p.skipSep()
	start := p.pos
	if p.pos < len(p.s) && (p.s[p.pos] == '+' || p.s[p.pos] == '-') {
		p.pos++
	}
	sawDot, sawDigit := false, false
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch {
		case c >= '0' && c <= '9':
			sawDigit = true
			p.pos++
		case c == '.' && !sawDot:
			sawDot = true
			p.pos++
		case (c == 'e' || c == 'E') && sawDigit:
			p.pos++
			if p.pos < len(p.s) && (p.s[p.pos] == '+' || p.s[p.pos] == '-') {
				p.pos++
			}
		default:
			goto done
		}
	}
done:
	if !sawDigit {
		p.pos = start
		return 0, false
	}
	v, err := strconv.ParseFloat(p.s[start:p.pos], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (p *pathScanner) nextFlag() (int, bool) {
	p.skipSep()
	if p.pos >= len(p.s) {
		return 0, false
	}
	c := p.s[p.pos]
	if c == '0' || c == '1' {
		p.pos++
		return int(c - '0'), true
	}
	return 0, false
}

func fnum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func boolLit(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// parsePathToCompose translates an SVG path "d" string into a sequence of
// androidx.compose.ui.graphics.vector.PathBuilder calls, one line per
// command. Compose's builder mirrors the SVG command set closely enough
// (moveTo/lineTo/curveTo/quadTo/arcTo plus "Relative" variants) that this is
// close to a direct transliteration rather than a geometric reinterpretation.
func parsePathToCompose(d string) []string {
	sc := &pathScanner{s: d}
	var out []string
	var cmd byte

	for {
		if _, ok := sc.peekCommand(); ok {
			cmd = sc.nextCommand()
		} else if cmd == 0 || !sc.hasNumber() {
			break
		}

		switch cmd {
		case 'Z', 'z':
			out = append(out, "close()")
		case 'M', 'm':
			x, ok1 := sc.nextNumber()
			y, ok2 := sc.nextNumber()
			if !ok1 || !ok2 {
				return out
			}
			if cmd == 'M' {
				out = append(out, fmt.Sprintf("moveTo(%sf, %sf)", fnum(x), fnum(y)))
				cmd = 'L' // an M's trailing coordinate pairs are implicit lineTos
			} else {
				out = append(out, fmt.Sprintf("moveToRelative(%sf, %sf)", fnum(x), fnum(y)))
				cmd = 'l'
			}
		case 'L', 'l':
			x, ok1 := sc.nextNumber()
			y, ok2 := sc.nextNumber()
			if !ok1 || !ok2 {
				return out
			}
			if cmd == 'L' {
				out = append(out, fmt.Sprintf("lineTo(%sf, %sf)", fnum(x), fnum(y)))
			} else {
				out = append(out, fmt.Sprintf("lineToRelative(%sf, %sf)", fnum(x), fnum(y)))
			}
		case 'H', 'h':
			x, ok := sc.nextNumber()
			if !ok {
				return out
			}
			if cmd == 'H' {
				out = append(out, fmt.Sprintf("horizontalLineTo(%sf)", fnum(x)))
			} else {
				out = append(out, fmt.Sprintf("horizontalLineToRelative(%sf)", fnum(x)))
			}
		case 'V', 'v':
			y, ok := sc.nextNumber()
			if !ok {
				return out
			}
			if cmd == 'V' {
				out = append(out, fmt.Sprintf("verticalLineTo(%sf)", fnum(y)))
			} else {
				out = append(out, fmt.Sprintf("verticalLineToRelative(%sf)", fnum(y)))
			}
		case 'C', 'c':
			x1, o1 := sc.nextNumber()
			y1, o2 := sc.nextNumber()
			x2, o3 := sc.nextNumber()
			y2, o4 := sc.nextNumber()
			x, o5 := sc.nextNumber()
			y, o6 := sc.nextNumber()
			if !(o1 && o2 && o3 && o4 && o5 && o6) {
				return out
			}
			name := "curveTo"
			if cmd == 'c' {
				name = "curveToRelative"
			}
			out = append(out, fmt.Sprintf("%s(%sf, %sf, %sf, %sf, %sf, %sf)", name, fnum(x1), fnum(y1), fnum(x2), fnum(y2), fnum(x), fnum(y)))
		case 'S', 's':
			x2, o1 := sc.nextNumber()
			y2, o2 := sc.nextNumber()
			x, o3 := sc.nextNumber()
			y, o4 := sc.nextNumber()
			if !(o1 && o2 && o3 && o4) {
				return out
			}
			name := "reflectiveCurveTo"
			if cmd == 's' {
				name = "reflectiveCurveToRelative"
			}
			out = append(out, fmt.Sprintf("%s(%sf, %sf, %sf, %sf)", name, fnum(x2), fnum(y2), fnum(x), fnum(y)))
		case 'Q', 'q':
			x1, o1 := sc.nextNumber()
			y1, o2 := sc.nextNumber()
			x, o3 := sc.nextNumber()
			y, o4 := sc.nextNumber()
			if !(o1 && o2 && o3 && o4) {
				return out
			}
			name := "quadTo"
			if cmd == 'q' {
				name = "quadToRelative"
			}
			out = append(out, fmt.Sprintf("%s(%sf, %sf, %sf, %sf)", name, fnum(x1), fnum(y1), fnum(x), fnum(y)))
		case 'T', 't':
			x, o1 := sc.nextNumber()
			y, o2 := sc.nextNumber()
			if !(o1 && o2) {
				return out
			}
			name := "reflectiveQuadTo"
			if cmd == 't' {
				name = "reflectiveQuadToRelative"
			}
			out = append(out, fmt.Sprintf("%s(%sf, %sf)", name, fnum(x), fnum(y)))
		case 'A', 'a':
			rx, o1 := sc.nextNumber()
			ry, o2 := sc.nextNumber()
			rot, o3 := sc.nextNumber()
			laf, o4 := sc.nextFlag()
			sf, o5 := sc.nextFlag()
			x, o6 := sc.nextNumber()
			y, o7 := sc.nextNumber()
			if !(o1 && o2 && o3 && o4 && o5 && o6 && o7) {
				return out
			}
			name := "arcTo"
			if cmd == 'a' {
				name = "arcToRelative"
			}
			out = append(out, fmt.Sprintf("%s(%sf, %sf, %sf, %s, %s, %sf, %sf)",
				name, fnum(rx), fnum(ry), fnum(rot), boolLit(laf == 1), boolLit(sf == 1), fnum(x), fnum(y)))
		default:
			return out
		}
	}
	return out
}

// transformOp is one function call parsed out of an SVG "transform"
// attribute, e.g. "rotate(45,12,12)" becomes {kind: "rotate", a: 45, b: 12,
// c: 12, n: 3}.
type transformOp struct {
	kind    string
	a, b, c float64
	n       int
}

// parseTransformChain splits a "transform" attribute into its constituent
// function calls, preserving left-to-right order (outermost first, matching
// how nested coordinate systems compose). Functions this engine does not
// know how to represent as a single group (matrix, skewX, skewY) are
// dropped rather than applied incorrectly.
func parseTransformChain(s string) []transformOp {
	var ops []transformOp
	for _, fn := range strings.Split(s, ")") {
		fn = strings.TrimSpace(fn)
		if fn == "" {
			continue
		}
		open := strings.IndexByte(fn, '(')
		if open < 0 {
			continue
		}
		name := strings.TrimSpace(fn[:open])
		nums := parseNumberList(fn[open+1:])
		if name != "translate" && name != "rotate" && name != "scale" {
			continue
		}
		op := transformOp{kind: name, n: len(nums)}
		if len(nums) > 0 {
			op.a = nums[0]
		}
		if len(nums) > 1 {
			op.b = nums[1]
		}
		if len(nums) > 2 {
			op.c = nums[2]
		}
		ops = append(ops, op)
	}
	return ops
}

func parseNumberList(s string) []float64 {
	var out []float64
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	}) {
		if v, err := strconv.ParseFloat(f, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// transformAttrs is the combined effect of a transform chain expressed as a
// single Android vector <group>'s attribute set, which has no notion of a
// function chain and must carry translate/rotate/scale simultaneously.
type transformAttrs struct {
	translateX, translateY string
	rotation, pivotX, pivotY string
	scaleX, scaleY string
}

// combineTransform folds a parsed transform chain into one transformAttrs.
// Repeated functions of the same kind in the chain are not composed; only
// the first occurrence of each kind is kept, since Android's single <group>
// cannot express a genuine chain without nesting groups recursively.
func combineTransform(ops []transformOp) transformAttrs {
	var t transformAttrs
	for _, op := range ops {
		switch op.kind {
		case "translate":
			if t.translateX != "" {
				continue
			}
			ty := 0.0
			if op.n > 1 {
				ty = op.b
			}
			t.translateX, t.translateY = fnum(op.a), fnum(ty)
		case "rotate":
			if t.rotation != "" {
				continue
			}
			t.rotation = fnum(op.a)
			if op.n > 2 {
				t.pivotX, t.pivotY = fnum(op.b), fnum(op.c)
			}
		case "scale":
			if t.scaleX != "" {
				continue
			}
			sy := op.a
			if op.n > 1 {
				sy = op.b
			}
			t.scaleX, t.scaleY = fnum(op.a), fnum(sy)
		}
	}
	return t
}

func parseSingleTransform(s string) (transformAttrs, bool) {
	ops := parseTransformChain(s)
	if len(ops) == 0 {
		return transformAttrs{}, false
	}
	return combineTransform(ops), true
}
