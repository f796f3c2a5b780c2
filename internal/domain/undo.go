package domain

// UndoKind identifies which variant an UndoBackup holds.
type UndoKind int

const (
	UndoNone UndoKind = iota
	UndoSingleTab
	UndoBatch
)

// SingleTabBackup records one closed tab together with where it sat and
// whether it was selected, so a close can be undone in place.
type SingleTabBackup struct {
	Tab         TabData
	Index       int
	WasSelected bool
}

// UndoBackup is the one-level undo state of a window. Exactly one variant
// is populated at a time: nothing, a single closed tab, or a batch of
// closed tabs. Any destructive action or a successful undo replaces it.
type UndoBackup struct {
	kind   UndoKind
	single SingleTabBackup
	batch  []TabData
}

// NoBackup returns the empty variant.
func NoBackup() UndoBackup {
	return UndoBackup{kind: UndoNone}
}

// SingleBackup returns a backup holding one closed tab.
func SingleBackup(tab TabData, index int, wasSelected bool) UndoBackup {
	return UndoBackup{
		kind:   UndoSingleTab,
		single: SingleTabBackup{Tab: tab, Index: index, WasSelected: wasSelected},
	}
}

// BatchBackup returns a backup holding a batch of closed tabs in their
// original relative order.
func BatchBackup(tabs []TabData) UndoBackup {
	copied := make([]TabData, len(tabs))
	copy(copied, tabs)
	return UndoBackup{kind: UndoBatch, batch: copied}
}

// Kind returns which variant is held.
func (b UndoBackup) Kind() UndoKind {
	return b.kind
}

// IsNone reports whether there is nothing to undo.
func (b UndoBackup) IsNone() bool {
	return b.kind == UndoNone
}

// Single returns the single-tab variant. The bool is false for any other
// variant.
func (b UndoBackup) Single() (SingleTabBackup, bool) {
	if b.kind != UndoSingleTab {
		return SingleTabBackup{}, false
	}
	return b.single, true
}

// Batch returns the batch variant in original relative order. The bool is
// false for any other variant.
func (b UndoBackup) Batch() ([]TabData, bool) {
	if b.kind != UndoBatch {
		return nil, false
	}
	tabs := make([]TabData, len(b.batch))
	copy(tabs, b.batch)
	return tabs, true
}
