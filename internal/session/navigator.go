package session

// Navigator tracks the current question plus the bookmark and flag sets.
// Bookmarks and flags are advisory only. Not safe for concurrent use.
type Navigator struct {
	ids        []string
	current    int
	bookmarked map[string]struct{}
	flagged    map[string]struct{}

	canMove  func() bool
	canWrite func() bool
}

// NewNavigator builds a navigator over the ordered question IDs. canMove
// gates GoTo/Next/Prev, canWrite gates the toggles; nil gates allow all.
func NewNavigator(ids []string, canMove, canWrite func() bool) *Navigator {
	allow := func() bool { return true }
	if canMove == nil {
		canMove = allow
	}
	if canWrite == nil {
		canWrite = allow
	}
	return &Navigator{
		ids:        ids,
		bookmarked: make(map[string]struct{}),
		flagged:    make(map[string]struct{}),
		canMove:    canMove,
		canWrite:   canWrite,
	}
}

// Current returns the current index.
func (n *Navigator) Current() int {
	return n.current
}

// CurrentID returns the question ID at the current index.
func (n *Navigator) CurrentID() string {
	if len(n.ids) == 0 {
		return ""
	}
	return n.ids[n.current]
}

// Len returns the number of questions.
func (n *Navigator) Len() int {
	return len(n.ids)
}

// GoTo moves to index; out-of-range requests are ignored.
func (n *Navigator) GoTo(index int) bool {
	if !n.canMove() || index < 0 || index >= len(n.ids) {
		return false
	}
	n.current = index
	return true
}

func (n *Navigator) Next() bool {
	return n.GoTo(n.current + 1)
}

func (n *Navigator) Prev() bool {
	return n.GoTo(n.current - 1)
}

// NextUnanswered jumps to the first unanswered question after the current
// one, falling back to Next when every later question is answered.
func (n *Navigator) NextUnanswered(isAnswered func(id string) bool) bool {
	if !n.canMove() {
		return false
	}
	for i := n.current + 1; i < len(n.ids); i++ {
		if !isAnswered(n.ids[i]) {
			return n.GoTo(i)
		}
	}
	return n.Next()
}

// ToggleBookmark flips membership and returns the new state. When writes
// are closed the current state is returned unchanged.
func (n *Navigator) ToggleBookmark(id string) bool {
	return n.toggle(n.bookmarked, id)
}

// ToggleFlag flips membership and returns the new state.
func (n *Navigator) ToggleFlag(id string) bool {
	return n.toggle(n.flagged, id)
}

func (n *Navigator) toggle(set map[string]struct{}, id string) bool {
	_, on := set[id]
	if !n.canWrite() {
		return on
	}
	if on {
		delete(set, id)
		return false
	}
	set[id] = struct{}{}
	return true
}

// IsBookmarked reports bookmark membership.
func (n *Navigator) IsBookmarked(id string) bool {
	_, ok := n.bookmarked[id]
	return ok
}

// IsFlagged reports flag membership.
func (n *Navigator) IsFlagged(id string) bool {
	_, ok := n.flagged[id]
	return ok
}

// Bookmarks lists bookmarked IDs in question order.
func (n *Navigator) Bookmarks() []string {
	return n.members(n.bookmarked)
}

// Flags lists flagged IDs in question order.
func (n *Navigator) Flags() []string {
	return n.members(n.flagged)
}

func (n *Navigator) members(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for _, id := range n.ids {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// restore loads saved state, ignoring IDs not in the order.
func (n *Navigator) restore(current int, bookmarks, flags []string) {
	if current >= 0 && current < len(n.ids) {
		n.current = current
	}
	known := make(map[string]struct{}, len(n.ids))
	for _, id := range n.ids {
		known[id] = struct{}{}
	}
	for _, id := range bookmarks {
		if _, ok := known[id]; ok {
			n.bookmarked[id] = struct{}{}
		}
	}
	for _, id := range flags {
		if _, ok := known[id]; ok {
			n.flagged[id] = struct{}{}
		}
	}
}
