package typing

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads the notation String produces: kind[d0,d1,...]/metric{g0,g1}.
// Metric and group are optional. Shape terms are decimal sizes or symbol
// names; an empty bracket pair declares a scalar shape.
func Parse(s string) (Type, error) {
	src := strings.TrimSpace(s)

	open := strings.IndexByte(src, '[')
	if open <= 0 {
		return Type{}, fmt.Errorf("type %q: expected kind[shape]", s)
	}
	end := strings.IndexByte(src, ']')
	if end < open {
		return Type{}, fmt.Errorf("type %q: unterminated shape", s)
	}

	kind := src[:open]
	shape, err := parseShape(s, src[open+1:end])
	if err != nil {
		return Type{}, err
	}

	rest := src[end+1:]
	var metric string
	var group []string

	if i := strings.IndexByte(rest, '{'); i >= 0 {
		j := strings.IndexByte(rest, '}')
		if j < i {
			return Type{}, fmt.Errorf("type %q: unterminated group", s)
		}
		for _, g := range strings.Split(rest[i+1:j], ",") {
			if g = strings.TrimSpace(g); g != "" {
				group = append(group, g)
			}
		}
		rest = rest[:i]
	}
	if rest != "" {
		if !strings.HasPrefix(rest, "/") {
			return Type{}, fmt.Errorf("type %q: unexpected trailing %q", s, rest)
		}
		metric = rest[1:]
	}

	return New(kind, shape, metric, group...), nil
}

func parseShape(full, body string) ([]Dim, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil
	}
	terms := strings.Split(body, ",")
	shape := make([]Dim, len(terms))
	for i, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			return nil, fmt.Errorf("type %q: empty shape term", full)
		}
		if n, err := strconv.Atoi(term); err == nil {
			if n <= 0 {
				return nil, fmt.Errorf("type %q: shape size %d is not positive", full, n)
			}
			shape[i] = Fixed(n)
			continue
		}
		shape[i] = Sym(term)
	}
	return shape, nil
}
