package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit     key.Binding
	Tab      key.Binding
	Refresh  key.Binding
	Up       key.Binding
	Down     key.Binding
	Enter    key.Binding
	Esc      key.Binding
	Help     key.Binding
	Compare  key.Binding
	Read     key.Binding
	Left     key.Binding
	Right    key.Binding
	BeginRC  key.Binding
	BeginRR  key.Binding
	Commit   key.Binding
	Rollback key.Binding
	Reset    key.Binding
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "poll now")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/up", "prev row")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/down", "next row")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "version chain")),
	Esc:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Compare:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "compare")),
	Read:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "read row as left trx")),
	Left:     key.NewBinding(key.WithKeys("["), key.WithHelp("[", "cycle left trx")),
	Right:    key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "cycle right trx")),
	BeginRC:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "begin RC")),
	BeginRR:  key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "begin RR")),
	Commit:   key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "commit left trx")),
	Rollback: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "roll back left trx")),
	Reset:    key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "reset engine")),
}

// viewKeys maps single keys to views.
var viewKeys = map[string]viewID{
	"d": viewDashboard,
	"c": viewChain,
	"s": viewCompare,
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Compare, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Refresh, k.Up, k.Down, k.Enter, k.Esc},
		{k.Compare, k.Left, k.Right, k.Read},
		{k.BeginRC, k.BeginRR, k.Commit, k.Rollback, k.Reset},
		{k.Help, k.Quit},
	}
}

func contextHelp(v viewID) string {
	switch v {
	case viewDashboard:
		return "j/k: row | enter: chain | e: read | v: compare | n/N: begin | C/R: commit/rollback | ?: help | q: quit"
	case viewCompare:
		return "[/]: pick transactions | v: compare | e: read | d/c/s: views | ?: help | q: quit"
	default:
		return "esc: back | d/c/s: views | tab: next | ?: help | q: quit"
	}
}
