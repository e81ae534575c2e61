package domwatch

import (
	"strings"
	"sync"
)

// testNode is a minimal DOM element for exercising matching and delivery.
type testNode struct {
	tag      string
	id       string
	classes  []string
	parent   *testNode
	children []*testNode
}

func node(tag string, selector ...string) *testNode {
	n := &testNode{tag: tag}
	for _, s := range selector {
		switch {
		case strings.HasPrefix(s, "."):
			n.classes = append(n.classes, s[1:])
		case strings.HasPrefix(s, "#"):
			n.id = s[1:]
		}
	}
	return n
}

func (n *testNode) TagName() string { return n.tag }

func (n *testNode) append(children ...*testNode) *testNode {
	for _, c := range children {
		c.parent = n
		n.children = append(n.children, c)
	}
	return n
}

func (n *testNode) walk(fn func(*testNode)) {
	for _, c := range n.children {
		fn(c)
		c.walk(fn)
	}
}

// testEngine matches the simple selector forms "tag", ".class", and "#id"
// over a testNode tree.
type testEngine struct {
	root *testNode
}

func (e *testEngine) resolve(el Element) *testNode {
	if el == nil {
		return e.root
	}
	n, _ := el.(*testNode)
	return n
}

func nodeMatches(n *testNode, selector string) bool {
	switch {
	case strings.HasPrefix(selector, "."):
		for _, c := range n.classes {
			if c == selector[1:] {
				return true
			}
		}
		return false
	case strings.HasPrefix(selector, "#"):
		return n.id == selector[1:]
	default:
		return n.tag == selector
	}
}

func (e *testEngine) Matches(el Element, selector string) bool {
	n := e.resolve(el)
	return n != nil && nodeMatches(n, selector)
}

func (e *testEngine) QueryAll(root Element, selector string) []Element {
	start := e.resolve(root)
	if start == nil {
		return nil
	}
	var out []Element
	start.walk(func(d *testNode) {
		if nodeMatches(d, selector) {
			out = append(out, d)
		}
	})
	return out
}

func (e *testEngine) Contains(root, el Element) bool {
	top := e.resolve(root)
	n, _ := el.(*testNode)
	if top == nil || n == nil {
		return false
	}
	for ; n != nil; n = n.parent {
		if n == top {
			return true
		}
	}
	return false
}

// fakeSource hands each Observe call its own delivery channel and records
// observer lifecycle for assertions.
type fakeSource struct {
	mu        sync.Mutex
	observers []*fakeObserver
}

type fakeObserver struct {
	ch           chan []Record
	root         Element
	opts         ObserveOptions
	disconnected bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{}
}

func (f *fakeSource) Observe(root Element, opts ObserveOptions) (<-chan []Record, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ob := &fakeObserver{
		ch:   make(chan []Record, 16),
		root: root,
		opts: opts,
	}
	f.observers = append(f.observers, ob)

	disconnect := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !ob.disconnected {
			ob.disconnected = true
			close(ob.ch)
		}
	}
	return ob.ch, disconnect, nil
}

// emit delivers one batch to every live observer.
func (f *fakeSource) emit(batch ...Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ob := range f.observers {
		if !ob.disconnected {
			ob.ch <- batch
		}
	}
}

func (f *fakeSource) observeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.observers)
}

func (f *fakeSource) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ob := range f.observers {
		if ob.disconnected {
			n++
		}
	}
	return n
}

func (f *fakeSource) lastOpts() ObserveOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.observers) == 0 {
		return ObserveOptions{}
	}
	return f.observers[len(f.observers)-1].opts
}

// Record constructors for tests.

func addedRec(parent *testNode, nodes ...*testNode) Record {
	els := make([]Element, len(nodes))
	for i, n := range nodes {
		els[i] = n
	}
	return Record{Kind: KindChildAdded, Target: parent, Added: els}
}

func removedRec(parent *testNode, nodes ...*testNode) Record {
	els := make([]Element, len(nodes))
	for i, n := range nodes {
		els[i] = n
	}
	return Record{Kind: KindChildRemoved, Target: parent, Removed: els}
}

func attrRec(el *testNode, name string) Record {
	return Record{Kind: KindAttribute, Target: el, Attr: name}
}

func textRec(el *testNode) Record {
	return Record{Kind: KindText, Target: el}
}
