package domwatch

// Kind is the type of DOM mutation observed.
type Kind int

const (
	// KindChildAdded reports nodes inserted under the record's target.
	KindChildAdded Kind = iota

	// KindChildRemoved reports nodes removed from under the record's target.
	KindChildRemoved

	// KindAttribute reports an attribute change on the record's target.
	KindAttribute

	// KindText reports a character-data change owned by the record's target.
	KindText
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindChildAdded:
		return "child_added"
	case KindChildRemoved:
		return "child_removed"
	case KindAttribute:
		return "attribute"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Record is a single raw mutation as delivered by a MutationSource.
// A batch is the slice of records delivered together in one native
// observer callback, in platform order.
type Record struct {
	// Kind classifies the mutation.
	Kind Kind

	// Target is the element owning the mutation: the parent for structural
	// records, the changed element for attribute records, the element
	// owning the text node for character-data records.
	Target Element

	// Attr is the attribute name for KindAttribute records.
	Attr string

	// Added holds the inserted elements for KindChildAdded records.
	Added []Element

	// Removed holds the removed elements for KindChildRemoved records.
	Removed []Element
}

// ChangeInfo summarizes every mutation affecting one element within a
// single batch. It is rebuilt fresh for each batch and never persisted
// across batches.
type ChangeInfo struct {
	// Attrs is the set of attribute names that changed, nil if none did.
	Attrs map[string]bool

	// Text reports whether character data changed.
	Text bool

	// ChildList reports whether children were added or removed.
	ChildList bool

	// Records holds the raw records affecting the element, in delivery order.
	Records []Record
}

// apply folds one raw record into the summary.
func (c *ChangeInfo) apply(rec Record) {
	c.Records = append(c.Records, rec)
	switch rec.Kind {
	case KindAttribute:
		if c.Attrs == nil {
			c.Attrs = make(map[string]bool)
		}
		c.Attrs[rec.Attr] = true
	case KindText:
		c.Text = true
	case KindChildAdded, KindChildRemoved:
		c.ChildList = true
	}
}
