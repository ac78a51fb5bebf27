package memarena

// listAdd inserts node at the head of the list rooted at *head. Used for
// both the active list and each class's free list; which list a node
// belongs to is implied by context, never recorded on the node itself
// (spec.md §4.8).
func (a *Arena) listAdd(head *offset, node offset) {
	h := a.headerAt(node)
	h.prevOffset = nullOffset
	h.nextOffset = *head

	if *head != nullOffset {
		a.headerAt(*head).prevOffset = node
	}

	*head = node
}

// listRemove unlinks node from the list rooted at *head, patching its
// neighbors and, if node was the head, advancing *head.
func (a *Arena) listRemove(head *offset, node offset) {
	h := a.headerAt(node)

	if node == *head {
		*head = h.nextOffset
		if *head != nullOffset {
			a.headerAt(*head).prevOffset = nullOffset
		}
	} else {
		if h.prevOffset != nullOffset {
			a.headerAt(h.prevOffset).nextOffset = h.nextOffset
		}
		if h.nextOffset != nullOffset {
			a.headerAt(h.nextOffset).prevOffset = h.prevOffset
		}
	}

	h.prevOffset = nullOffset
	h.nextOffset = nullOffset
}
