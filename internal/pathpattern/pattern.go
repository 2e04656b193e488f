// Package pathpattern matches request paths against route patterns such as
// "/admin/**" or "/{slug}/calculator".
//
// Segments are separated by "/". A segment may be a literal, "*" (exactly
// one segment), "{name}" (one non-empty segment, captured under name) or
// "**" (any remaining segments, including none; only allowed last).
package pathpattern

import (
	"fmt"
	"path"
	"strings"
)

// Params holds captured {name} segments.
type Params map[string]string

// Pattern is a compiled path pattern
type Pattern struct {
	raw      string
	segments []string
	rest     bool
}

// Compile parses a pattern.
func Compile(raw string) (Pattern, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") {
		return Pattern{}, fmt.Errorf("pattern %q must start with /", raw)
	}
	p := Pattern{raw: raw}
	segs := split(raw)
	for i, seg := range segs {
		switch {
		case seg == "**":
			if i != len(segs)-1 {
				return Pattern{}, fmt.Errorf("pattern %q: ** is only allowed as the last segment", raw)
			}
			p.rest = true
			continue
		case strings.HasPrefix(seg, "{"):
			if !strings.HasSuffix(seg, "}") || len(seg) < 3 {
				return Pattern{}, fmt.Errorf("pattern %q: malformed parameter %q", raw, seg)
			}
		case strings.ContainsAny(seg, "{}"):
			return Pattern{}, fmt.Errorf("pattern %q: malformed segment %q", raw, seg)
		}
		p.segments = append(p.segments, seg)
	}
	return p, nil
}

// MustCompile is like Compile but panics on error
func MustCompile(raw string) Pattern {
	p, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// CompileList parses a comma-separated list of patterns.
func CompileList(list string) ([]Pattern, error) {
	var out []Pattern
	for _, raw := range strings.Split(list, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		p, err := Compile(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (p Pattern) String() string { return p.raw }

// Match reports whether urlPath matches p and returns the captured params.
// The path is cleaned first so dot segments cannot be used to step around
// a pattern.
func (p Pattern) Match(urlPath string) (Params, bool) {
	segs := split(path.Clean("/" + urlPath))
	if len(segs) < len(p.segments) {
		return nil, false
	}
	if !p.rest && len(segs) != len(p.segments) {
		return nil, false
	}

	var params Params
	for i, want := range p.segments {
		got := segs[i]
		switch {
		case want == "*":
		case strings.HasPrefix(want, "{"):
			if params == nil {
				params = make(Params)
			}
			params[want[1:len(want)-1]] = got
		case want != got:
			return nil, false
		}
	}
	return params, true
}

// MatchAny returns the first pattern in list matching urlPath.
func MatchAny(list []Pattern, urlPath string) (Pattern, Params, bool) {
	for _, p := range list {
		if params, ok := p.Match(urlPath); ok {
			return p, params, true
		}
	}
	return Pattern{}, nil, false
}

func split(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
