package domwatch

import "fmt"

// MatchFunc is a caller-supplied predicate over elements. Errors propagate
// unmodified to the session or wait that invoked the match.
type MatchFunc func(Element) (bool, error)

type targetKind int

const (
	targetSelector targetKind = iota
	targetElement
	targetPredicate
)

// Target identifies the elements a session or wait cares about. Build one
// with Selector, ElementRef, or Predicate. A Target is immutable once
// bound to a session.
type Target struct {
	kind      targetKind
	selector  string
	element   Element
	predicate MatchFunc
}

// Selector targets elements satisfying a CSS selector.
func Selector(css string) Target {
	return Target{kind: targetSelector, selector: css}
}

// ElementRef targets exactly one element, compared by identity.
func ElementRef(el Element) Target {
	return Target{kind: targetElement, element: el}
}

// Predicate targets elements for which fn returns true.
func Predicate(fn MatchFunc) Target {
	return Target{kind: targetPredicate, predicate: fn}
}

// String returns a short description for observability fields.
func (t Target) String() string {
	switch t.kind {
	case targetSelector:
		return fmt.Sprintf("selector(%s)", t.selector)
	case targetElement:
		if t.element != nil {
			return fmt.Sprintf("element(%s)", t.element.TagName())
		}
		return "element(nil)"
	case targetPredicate:
		return "predicate"
	default:
		return "unknown"
	}
}

// matcher decides whether elements satisfy a target. It is a pure function
// of (element, target): observe and wait paths share the same instance
// semantics.
type matcher struct {
	engine SelectorEngine
}

// matches tests a single element against the target. Predicate results and
// errors pass through unmodified.
func (m matcher) matches(el Element, t Target) (bool, error) {
	switch t.kind {
	case targetSelector:
		return m.engine.Matches(el, t.selector), nil
	case targetElement:
		return el == t.element, nil
	case targetPredicate:
		return t.predicate(el)
	default:
		return false, nil
	}
}

// descendants returns the descendants of root satisfying the target.
// Only selector targets fan out over descendants; ElementRef and Predicate
// targets deliberately never do.
func (m matcher) descendants(root Element, t Target) []Element {
	if t.kind != targetSelector {
		return nil
	}
	return m.engine.QueryAll(root, t.selector)
}
