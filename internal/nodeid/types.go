package nodeid

import "fmt"

// TerminalStage is the stage index reserved for the synthetic terminal node.
const TerminalStage = -1

// terminalName is the canonical text form of the terminal key.
const terminalName = "finalize"

// Key identifies one (item, stage) node. The zero value is not a valid key.
type Key struct {
	// Item is the stable identifier assigned by the item enumerator.
	Item string
	// Stage is the zero-based position of the stage in the registry.
	Stage int
}

// Terminal is the key of the node that depends on every item's final stage.
var Terminal = Key{Stage: TerminalStage}

// New returns the key for stage index stage of item.
func New(item string, stage int) Key {
	return Key{Item: item, Stage: stage}
}

// IsTerminal reports whether k addresses the synthetic terminal node.
func (k Key) IsTerminal() bool {
	return k == Terminal
}

// Prev returns the key of the same item's previous stage. ok is false for
// first-stage keys and for the terminal key.
func (k Key) Prev() (Key, bool) {
	if k.IsTerminal() || k.Stage <= 0 {
		return Key{}, false
	}
	return Key{Item: k.Item, Stage: k.Stage - 1}, true
}

// String renders the canonical form, e.g. `img01[2]`.
func (k Key) String() string {
	if k.IsTerminal() {
		return terminalName
	}
	return fmt.Sprintf("%s[%d]", k.Item, k.Stage)
}
