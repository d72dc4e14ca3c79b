// Package nspath implements the Path value type: an immutable, comparable,
// hierarchical name addressed by the naming server. See spec.md section 3
// and 4.1 for the full semantic contract.
package nspath

import (
	"fmt"
	"strings"

	"github.com/nsfs/naming/naming/nserr"
)

// Path is an ordered sequence of non-empty components. The zero value
// behaves as the root (IsRoot, String, Components), but it is not == to
// Root(). Paths built by Root, New, Join or Parent are comparable with ==
// and safe to use as a map key: their only field is the canonical string
// form, which the component sequence determines uniquely and vice versa.
type Path struct {
	// canon is the canonical string form: "/" for root, otherwise
	// "/" + components joined by "/". Never has a trailing slash except
	// for root, never contains empty components.
	canon string
}

// Root returns the root path.
func Root() Path {
	return Path{canon: "/"}
}

// New parses the canonical wire form of a path. It must start with "/" and
// must not contain ":". Empty components between slashes (including a
// trailing slash) are dropped.
func New(s string) (Path, error) {
	if s == "" || s[0] != '/' {
		return Path{}, wrapInvalid("path must start with '/': %q", s)
	}
	if strings.Contains(s, ":") {
		return Path{}, wrapInvalid("path must not contain ':': %q", s)
	}

	parts := strings.Split(s, "/")
	comps := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		comps = append(comps, p)
	}

	return fromComponents(comps), nil
}

func fromComponents(comps []string) Path {
	if len(comps) == 0 {
		return Root()
	}
	return Path{canon: "/" + strings.Join(comps, "/")}
}

// Components returns the ordered component sequence. The root yields an
// empty, non-nil slice.
func (p Path) Components() []string {
	if p.canon == "" || p.canon == "/" {
		return []string{}
	}
	return strings.Split(strings.TrimPrefix(p.canon, "/"), "/")
}

// String returns the canonical wire form.
func (p Path) String() string {
	if p.canon == "" {
		return "/"
	}
	return p.canon
}

// IsRoot reports whether p is the root.
func (p Path) IsRoot() bool {
	return p.canon == "" || p.canon == "/"
}

// Join appends one component to p, failing with ErrInvalidArgument if the
// component is empty or contains '/' or ':'.
func (p Path) Join(component string) (Path, error) {
	if component == "" {
		return Path{}, wrapInvalid("component must not be empty")
	}
	if strings.ContainsAny(component, "/:") {
		return Path{}, wrapInvalid("component must not contain '/' or ':': %q", component)
	}

	comps := append(append([]string{}, p.Components()...), component)
	return fromComponents(comps), nil
}

// Parent returns the parent path and true, or the zero value and false if p
// is the root.
func (p Path) Parent() (Path, bool) {
	comps := p.Components()
	if len(comps) == 0 {
		return Path{}, false
	}
	return fromComponents(comps[:len(comps)-1]), true
}

// Last returns the final component and true, or "" and false if p is the
// root.
func (p Path) Last() (string, bool) {
	comps := p.Components()
	if len(comps) == 0 {
		return "", false
	}
	return comps[len(comps)-1], true
}

// IsSubpath reports whether other is a prefix of p — that is, other is an
// ancestor-or-equal of p. Note the direction: p.IsSubpath(other) asks "is
// other above (or equal to) me", matching spec.md's definition exactly
// (and the source's inverted-sounding naming, which spec.md deliberately
// preserves — see DESIGN.md).
func (p Path) IsSubpath(other Path) bool {
	oc := other.Components()
	pc := p.Components()
	if len(oc) > len(pc) {
		return false
	}
	for i, c := range oc {
		if pc[i] != c {
			return false
		}
	}
	return true
}

// DirectChild returns the component of p immediately below parent, and
// true, if parent is a strict ancestor of p with exactly one fewer
// component. Otherwise returns "", false.
func (p Path) DirectChild(parent Path) (string, bool) {
	pc := p.Components()
	ac := parent.Components()
	if len(pc) != len(ac)+1 {
		return "", false
	}
	for i, c := range ac {
		if pc[i] != c {
			return "", false
		}
	}
	return pc[len(pc)-1], true
}

// Compare gives a total order over paths via lexicographic comparison of
// the canonical string form.
func (p Path) Compare(other Path) int {
	return strings.Compare(p.String(), other.String())
}

// Equal reports value equality. Prefer p == other when both are plain
// Path values; Equal exists for readability at call sites and for
// generic/interface contexts.
func (p Path) Equal(other Path) bool {
	return p == other
}

func wrapInvalid(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, nserr.ErrInvalidArgument)...)
}
