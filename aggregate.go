package domwatch

// aggregate folds one delivered batch into per-element change summaries.
// byElement and order are batch-scoped: callers create them fresh per
// batch and they never outlive the aggregation pass.
//
// For each record the owning element is tested against the target; for
// selector targets with subtree enabled, matching descendants of the
// owning element qualify as well. Qualifying elements appear in order in
// first-observed sequence. Matcher faults are collected and returned; the
// faulting record is skipped and the batch continues.
func aggregate(batch []Record, target Target, m matcher, subtree bool, byElement map[Element]*ChangeInfo, order *[]Element) []error {
	var faults []error

	for _, rec := range batch {
		el := rec.Target
		if el == nil {
			continue
		}

		ok, err := m.matches(el, target)
		if err != nil {
			faults = append(faults, err)
			continue
		}
		if ok {
			upsert(byElement, order, el).apply(rec)
		}

		if subtree {
			for _, d := range m.descendants(el, target) {
				upsert(byElement, order, d).apply(rec)
			}
		}
	}

	return faults
}

// upsert returns the element's ChangeInfo, creating it and recording
// first-observed order on first sight.
func upsert(byElement map[Element]*ChangeInfo, order *[]Element, el Element) *ChangeInfo {
	if info, ok := byElement[el]; ok {
		return info
	}
	info := &ChangeInfo{}
	byElement[el] = info
	*order = append(*order, el)
	return info
}
