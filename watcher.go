package domwatch

// Element is an opaque handle to a DOM node. Implementations must hand out
// canonical values: two handles for the same underlying node compare equal
// with ==. Pointer implementations get this for free.
type Element interface {
	// TagName returns the element's tag in lower case. Used for
	// observability fields, never for matching.
	TagName() string
}

// SelectorEngine is the selector primitive consumed by matching. A nil
// root always means the document root.
type SelectorEngine interface {
	// Matches reports whether el satisfies the CSS selector.
	Matches(el Element, selector string) bool

	// QueryAll returns the descendants of root satisfying the selector,
	// in document order. The root itself is never included.
	QueryAll(root Element, selector string) []Element

	// Contains reports whether el is root or a descendant of root.
	Contains(root, el Element) bool
}

// ObserveOptions selects which mutations a MutationSource reports.
type ObserveOptions struct {
	// Subtree extends observation to all descendants of the root.
	Subtree bool

	// ChildList reports node insertion and removal.
	ChildList bool

	// Attributes reports attribute changes, narrowed by AttributeFilter
	// when non-empty.
	Attributes      bool
	AttributeFilter []string

	// CharacterData reports text changes.
	CharacterData bool
}

// MutationSource is the native mutation-reporting primitive. Implementations
// deliver FIFO-ordered batches of records on the returned channel.
type MutationSource interface {
	// Observe begins reporting mutations under root according to opts.
	// The disconnect func is idempotent; after it returns, no further
	// batches are delivered and the channel is closed.
	Observe(root Element, opts ObserveOptions) (batches <-chan []Record, disconnect func(), err error)
}
