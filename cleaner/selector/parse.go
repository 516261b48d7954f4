package selector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/purgedom/cleaner/dom"
)

// ErrUnsupported is returned for selector syntax outside the supported
// subset. Callers treat it as "matches nothing".
var ErrUnsupported = errors.New("selector: unsupported syntax")

// Supported subset:
//   - type and universal: "div", "*"
//   - "#id", ".class"
//   - "[attr]", "[attr=value]", "[attr=\"value\"]"
//   - ":nth-of-type(n)" with a positive integer
//   - child ">" and descendant (whitespace) combinators

type combinator int

const (
	descendant combinator = iota
	child
)

type attrMatch struct {
	name     string
	value    string
	hasValue bool
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
	nth     int
}

// Selector is a parsed selector.
type Selector struct {
	raw   string
	parts []compound
	// combs[i] joins parts[i] and parts[i+1].
	combs []combinator
}

func (s *Selector) String() string { return s.raw }

// Parse parses a selector in the supported subset.
func Parse(src string) (*Selector, error) {
	p := &parser{src: strings.TrimSpace(src)}
	if p.src == "" {
		return nil, fmt.Errorf("%w: empty selector", ErrUnsupported)
	}

	sel := &Selector{raw: src}
	c, err := p.compound()
	if err != nil {
		return nil, err
	}
	sel.parts = append(sel.parts, c)

	for !p.eof() {
		sawSpace := p.skipSpace()
		comb := descendant
		if p.peek() == '>' {
			p.pos++
			p.skipSpace()
			comb = child
		} else if !sawSpace {
			return nil, fmt.Errorf("%w: unexpected %q at %d", ErrUnsupported, p.peek(), p.pos)
		}
		if p.eof() {
			return nil, fmt.Errorf("%w: dangling combinator", ErrUnsupported)
		}
		c, err := p.compound()
		if err != nil {
			return nil, err
		}
		sel.combs = append(sel.combs, comb)
		sel.parts = append(sel.parts, c)
	}
	return sel, nil
}

// MustParse is Parse for selectors known at compile time.
func MustParse(src string) *Selector {
	s, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return s
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() bool {
	start := p.pos
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r', '\f':
			p.pos++
		default:
			return p.pos > start
		}
	}
	return p.pos > start
}

func isIdentByte(b byte) bool {
	return b == '-' || b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') ||
		b >= utf8.RuneSelf
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) compound() (compound, error) {
	var c compound
	start := p.pos

	if p.peek() == '*' {
		p.pos++
	} else {
		c.tag = strings.ToLower(p.ident())
	}

	for !p.eof() {
		switch p.peek() {
		case '#':
			p.pos++
			id := p.ident()
			if id == "" {
				return c, fmt.Errorf("%w: empty id at %d", ErrUnsupported, p.pos)
			}
			c.id = id
		case '.':
			p.pos++
			class := p.ident()
			if class == "" {
				return c, fmt.Errorf("%w: empty class at %d", ErrUnsupported, p.pos)
			}
			c.classes = append(c.classes, class)
		case '[':
			am, err := p.attr()
			if err != nil {
				return c, err
			}
			c.attrs = append(c.attrs, am)
		case ':':
			n, err := p.nthOfType()
			if err != nil {
				return c, err
			}
			c.nth = n
		default:
			if p.pos == start {
				return c, fmt.Errorf("%w: unexpected %q at %d", ErrUnsupported, p.peek(), p.pos)
			}
			return c, nil
		}
	}
	if p.pos == start {
		return c, fmt.Errorf("%w: empty compound", ErrUnsupported)
	}
	return c, nil
}

func (p *parser) attr() (attrMatch, error) {
	var am attrMatch
	p.pos++ // [
	p.skipSpace()
	am.name = strings.ToLower(p.ident())
	if am.name == "" {
		return am, fmt.Errorf("%w: empty attribute name at %d", ErrUnsupported, p.pos)
	}
	p.skipSpace()

	switch p.peek() {
	case ']':
		p.pos++
		return am, nil
	case '=':
		p.pos++
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return am, err
		}
		am.value, am.hasValue = v, true
		p.skipSpace()
		if p.peek() != ']' {
			return am, fmt.Errorf("%w: unterminated attribute at %d", ErrUnsupported, p.pos)
		}
		p.pos++
		return am, nil
	default:
		return am, fmt.Errorf("%w: attribute operator at %d", ErrUnsupported, p.pos)
	}
}

func (p *parser) value() (string, error) {
	q := p.peek()
	if q != '"' && q != '\'' {
		v := p.ident()
		if v == "" {
			return "", fmt.Errorf("%w: empty attribute value at %d", ErrUnsupported, p.pos)
		}
		return v, nil
	}

	p.pos++
	var b strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == '\\' && p.pos+1 < len(p.src):
			b.WriteByte(p.src[p.pos+1])
			p.pos += 2
		case c == q:
			p.pos++
			return b.String(), nil
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", fmt.Errorf("%w: unterminated string", ErrUnsupported)
}

const nthOfType = ":nth-of-type("

func (p *parser) nthOfType() (int, error) {
	if !strings.HasPrefix(p.src[p.pos:], nthOfType) {
		return 0, fmt.Errorf("%w: pseudo-class at %d", ErrUnsupported, p.pos)
	}
	p.pos += len(nthOfType)
	start := p.pos
	for !p.eof() && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: nth-of-type argument at %d", ErrUnsupported, start)
	}
	if p.peek() != ')' {
		return 0, fmt.Errorf("%w: unterminated nth-of-type", ErrUnsupported)
	}
	p.pos++
	return n, nil
}

// Match reports whether el matches the selector.
func (s *Selector) Match(el dom.Element) bool {
	if el == nil || len(s.parts) == 0 {
		return false
	}
	return s.matchAt(el, len(s.parts)-1)
}

func (s *Selector) matchAt(el dom.Element, i int) bool {
	if !s.parts[i].match(el) {
		return false
	}
	if i == 0 {
		return true
	}
	switch s.combs[i-1] {
	case child:
		p := el.Parent()
		return p != nil && s.matchAt(p, i-1)
	default:
		for p := el.Parent(); p != nil; p = p.Parent() {
			if s.matchAt(p, i-1) {
				return true
			}
		}
		return false
	}
}

func (c compound) match(el dom.Element) bool {
	if c.tag != "" && el.TagName() != c.tag {
		return false
	}
	if c.id != "" {
		if v, _ := el.Attr("id"); v != c.id {
			return false
		}
	}
	for _, class := range c.classes {
		if !el.HasClass(class) {
			return false
		}
	}
	for _, am := range c.attrs {
		v, ok := el.Attr(am.name)
		if !ok || (am.hasValue && v != am.value) {
			return false
		}
	}
	if c.nth > 0 && ordinal(el) != c.nth {
		return false
	}
	return true
}
