// Package transform implements the deterministic, content-addressable
// transforms of SPEC_FULL.md §4.E: SimplifySvg, RenderRasterFromSvg,
// TransformRasterToWebp, TransformSvgToImageVector, and
// TransformSvgToAndroidDrawable.
package transform

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
)

// strippedAttrNames are attributes dropped unconditionally: namespace and
// whitespace declarations that carry no visual meaning once the document is
// standalone.
var strippedAttrNames = map[string]bool{
	"xmlns:xlink": true,
	"xml:space":   true,
}

// svgElement is a minimal, order-preserving tree used to canonicalize an SVG
// document: re-serializing from this tree drops comments, processing
// instructions, and insignificant whitespace, producing byte-identical
// output for semantically identical input.
type svgElement struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Children []*svgElement
	CharData string
}

// SimplifySvg parses raw SVG bytes and re-serializes a canonical, minified
// form: attributes sorted by name, comments and the input's XML declaration
// removed (a fixed UTF-8 declaration is written in its place), insignificant
// whitespace between elements collapsed. Applying SimplifySvg
// to its own output returns the identical bytes (spec.md §8's idempotence
// law).
func SimplifySvg(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, apperrors.New(apperrors.CategoryTransform, "simplify_svg", apperrors.ErrEmptyInput)
	}
	root, err := parseSvg(raw)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryTransform, "simplify_svg", err)
	}
	resolveStyles(root)
	root = stripExternalRefs(root)

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	writeCanonical(&buf, root)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func parseSvg(raw []byte) (*svgElement, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var stack []*svgElement
	var root *svgElement

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &svgElement{Name: t.Name, Attrs: filterAttrs(t.Attr)}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			} else {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" || len(stack) == 0 {
				continue
			}
			cur := stack[len(stack)-1]
			cur.CharData += text
		case xml.Comment, xml.ProcInst, xml.Directive:
			// dropped
		}
	}
	if root == nil {
		return nil, fmt.Errorf("simplify_svg: no root element found")
	}
	return root, nil
}

func filterAttrs(in []xml.Attr) []xml.Attr {
	out := make([]xml.Attr, 0, len(in))
	for _, a := range in {
		if strippedAttrNames[qualifiedName(a.Name)] {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return qualifiedName(out[i].Name) < qualifiedName(out[j].Name)
	})
	return out
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func writeCanonical(buf *bytes.Buffer, el *svgElement) {
	buf.WriteByte('<')
	buf.WriteString(el.Name.Local)
	for _, a := range el.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(qualifiedName(a.Name))
		buf.WriteString(`="`)
		xml.EscapeText(buf, []byte(a.Value))
		buf.WriteByte('"')
	}
	if len(el.Children) == 0 && el.CharData == "" {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	if el.CharData != "" {
		xml.EscapeText(buf, []byte(el.CharData))
	}
	for _, c := range el.Children {
		writeCanonical(buf, c)
	}
	buf.WriteString("</")
	buf.WriteString(el.Name.Local)
	buf.WriteByte('>')
}

// inheritablePresentationAttrs are the CSS-inheritable SVG presentation
// properties: an element that doesn't set one of these takes its nearest
// ancestor's value, per the CSS/SVG inheritance model.
var inheritablePresentationAttrs = map[string]bool{
	"fill": true, "stroke": true, "stroke-width": true,
	"stroke-linecap": true, "stroke-linejoin": true,
	"opacity": true, "fill-opacity": true, "stroke-opacity": true,
}

// resolveStyles folds each element's "style" attribute into same-named
// presentation attributes and pushes inherited presentation values down
// onto every descendant that doesn't set its own, so each element in the
// canonical output is fully self-describing and a downstream transform
// never needs to walk back up the tree to learn a shape's fill or stroke.
func resolveStyles(root *svgElement) {
	var visit func(el *svgElement, inherited map[string]string)
	visit = func(el *svgElement, inherited map[string]string) {
		el.Attrs = resolveStyleAttr(el.Attrs)

		current := make(map[string]string, len(inherited))
		for k, v := range inherited {
			current[k] = v
		}
		for _, a := range el.Attrs {
			if inheritablePresentationAttrs[a.Name.Local] {
				current[a.Name.Local] = a.Value
			}
		}
		for name, val := range current {
			if _, has := attr(el, name); !has {
				el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: val})
			}
		}
		sort.Slice(el.Attrs, func(i, j int) bool {
			return qualifiedName(el.Attrs[i].Name) < qualifiedName(el.Attrs[j].Name)
		})

		for _, c := range el.Children {
			visit(c, current)
		}
	}
	visit(root, map[string]string{})
}

// resolveStyleAttr removes el's "style" attribute, if any, and merges its
// CSS declarations into same-named presentation attributes — style wins
// over a presentation attribute of the same name, matching the CSS cascade.
func resolveStyleAttr(attrs []xml.Attr) []xml.Attr {
	var style string
	out := make([]xml.Attr, 0, len(attrs))
	for _, a := range attrs {
		if a.Name.Local == "style" {
			style = a.Value
			continue
		}
		out = append(out, a)
	}
	if style == "" {
		return out
	}
	props := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		kv := strings.SplitN(decl, ":", 2)
		if len(kv) != 2 {
			continue
		}
		props[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	for i := range out {
		if v, ok := props[out[i].Name.Local]; ok {
			out[i].Value = v
			delete(props, out[i].Name.Local)
		}
	}
	for k, v := range props {
		out = append(out, xml.Attr{Name: xml.Name{Local: k}, Value: v})
	}
	return out
}

// stripExternalRefs drops <use>/<image> elements that reference an external
// resource (an "href"/"xlink:href" not pointing at a local "#fragment") and
// strips any stray external href elsewhere, so the canonical subset never
// depends on fetching anything outside the document itself.
func stripExternalRefs(root *svgElement) *svgElement {
	root.Children = filterExternalRefs(root.Children)
	return root
}

func filterExternalRefs(children []*svgElement) []*svgElement {
	out := make([]*svgElement, 0, len(children))
	for _, c := range children {
		if referencesExternal(c) {
			continue
		}
		c.Attrs = stripHrefAttr(c.Attrs)
		c.Children = filterExternalRefs(c.Children)
		out = append(out, c)
	}
	return out
}

func referencesExternal(el *svgElement) bool {
	if el.Name.Local != "use" && el.Name.Local != "image" {
		return false
	}
	for _, a := range el.Attrs {
		if a.Name.Local == "href" {
			return !strings.HasPrefix(a.Value, "#")
		}
	}
	return false
}

func stripHrefAttr(attrs []xml.Attr) []xml.Attr {
	out := make([]xml.Attr, 0, len(attrs))
	for _, a := range attrs {
		if a.Name.Local == "href" && !strings.HasPrefix(a.Value, "#") {
			continue
		}
		out = append(out, a)
	}
	return out
}

// walkPaths returns every "path"/"rect"/"circle"/"ellipse"/"polygon"/
// "polyline"/"line" element in document order, the shape set the Image
// Vector and Android Drawable transforms both render from.
func walkPaths(root *svgElement) []*svgElement {
	var out []*svgElement
	var visit func(*svgElement)
	shapeTypes := map[string]bool{
		"path": true, "rect": true, "circle": true, "ellipse": true,
		"polygon": true, "polyline": true, "line": true,
	}
	visit = func(el *svgElement) {
		if shapeTypes[el.Name.Local] {
			out = append(out, el)
		}
		for _, c := range el.Children {
			visit(c)
		}
	}
	visit(root)
	return out
}

func attr(el *svgElement, name string) (string, bool) {
	for _, a := range el.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func attrOr(el *svgElement, name, def string) string {
	if v, ok := attr(el, name); ok {
		return v
	}
	return def
}
