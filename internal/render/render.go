package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/KilimcininKorOglu/mvccview/internal/chain"
	"github.com/KilimcininKorOglu/mvccview/internal/compare"
	"github.com/KilimcininKorOglu/mvccview/internal/model"
	"github.com/KilimcininKorOglu/mvccview/internal/notify"
)

const timeLayout = "15:04:05.000"

// maxOperations is how many of an active transaction's latest operations
// are listed.
const maxOperations = 5

// Renderer formats views for a terminal of a given width.
type Renderer struct {
	// Width caps line length; zero disables truncation.
	Width int
}

// New returns a renderer for width columns.
func New(width int) *Renderer {
	return &Renderer{Width: width}
}

// Dashboard renders the primary view.
func (r *Renderer) Dashboard(d Dashboard) string {
	var b strings.Builder
	modified := model.NewRowSet(d.ModifiedRows...)

	b.WriteString(titleStyle.Render("MVCC engine"))
	if !d.FetchedAt.IsZero() {
		b.WriteString(dimStyle.Render("  fetched " + d.FetchedAt.Format(timeLayout)))
	}
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("Active transactions (%d)", len(d.Active))))
	b.WriteRune('\n')
	if len(d.Active) == 0 {
		b.WriteString(dimStyle.Render("  none"))
		b.WriteRune('\n')
	}
	for _, trx := range d.Active {
		b.WriteString(activeStyle.Render(fmt.Sprintf("  T%d", trx.ID)))
		fmt.Fprintf(&b, " %s started %s modified %s ops %d\n",
			trx.IsolationLevel, formatTime(trx.StartTime), trx.ModifiedSet(), len(trx.Operations))
		writeOperations(&b, trx.Operations)
	}

	b.WriteRune('\n')
	b.WriteString(headerStyle.Render("Read views"))
	b.WriteRune('\n')
	if len(d.ReadViews) == 0 {
		b.WriteString(dimStyle.Render("  none"))
		b.WriteRune('\n')
	}
	for _, rv := range d.ReadViews {
		fmt.Fprintf(&b, "  T%d creator=%d m_ids=%s min=%d max=%d\n",
			rv.TrxID, rv.CreatorTrxID, formatTrxIDs(rv.ActiveIDs), rv.MinTrxID, rv.MaxTrxID)
	}

	b.WriteRune('\n')
	committed := fmt.Sprintf("Committed (latest %d)", len(d.Committed))
	if d.CommittedRetained > len(d.Committed) {
		committed = fmt.Sprintf("Committed (latest %d of %d)", len(d.Committed), d.CommittedRetained)
	}
	b.WriteString(headerStyle.Render(committed))
	b.WriteRune('\n')
	for _, trx := range d.Committed {
		b.WriteString(committedStyle.Render(fmt.Sprintf("  T%d", trx.ID)))
		commit := "-"
		if trx.CommitTime != nil {
			commit = formatTime(*trx.CommitTime)
		}
		fmt.Fprintf(&b, " %s committed %s\n", trx.IsolationLevel, commit)
	}
	if len(d.Aborted) > 0 {
		b.WriteString(headerStyle.Render(fmt.Sprintf("Aborted (%d)", len(d.Aborted))))
		b.WriteRune('\n')
		for _, trx := range d.Aborted {
			b.WriteString(abortedStyle.Render(fmt.Sprintf("  T%d", trx.ID)))
			fmt.Fprintf(&b, " %s\n", trx.IsolationLevel)
		}
	}

	b.WriteRune('\n')
	b.WriteString(headerStyle.Render(fmt.Sprintf("Rows (%d)", len(d.Rows))))
	b.WriteRune('\n')
	b.WriteString(dimStyle.Render("  ROW   DB_TRX_ID  DB_ROLL_PTR  DATA"))
	b.WriteRune('\n')
	for _, row := range d.Rows {
		line := fmt.Sprintf("  %-5d %-10s %-12s %s", row.ID, formatTrxPtr(row.CurrentTrxID), formatUndoPtr(row.DisplayRollPointer), FormatData(row.Data))
		if row.Deleted {
			line += " (deleted)"
		}
		switch {
		case d.Focus != nil && *d.Focus == row.ID:
			line = focusStyle.Render(line + " *")
		case modified.Contains(row.ID):
			line = modifiedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteRune('\n')
	}

	b.WriteRune('\n')
	b.WriteString(headerStyle.Render(fmt.Sprintf("Undo log (%d)", len(d.UndoLogs))))
	b.WriteRune('\n')
	for _, u := range d.UndoLogs {
		fmt.Fprintf(&b, "  #%-4d %-6s T%-4d row %-4d roll_ptr %s\n",
			u.UndoID, u.LogType, u.TrxID, u.RowID, formatUndoPtr(u.RollPointer))
	}

	return r.truncate(b.String())
}

// writeOperations lists the latest operations oldest first, then how many
// earlier ones were left out.
func writeOperations(b *strings.Builder, ops []model.Operation) {
	hidden := 0
	if len(ops) > maxOperations {
		hidden = len(ops) - maxOperations
		ops = ops[hidden:]
	}
	for _, op := range ops {
		fmt.Fprintf(b, "      %-6s row %-4d %s", op.Type, op.RowID, formatTime(op.Timestamp))
		if len(op.Details) > 0 {
			b.WriteString(dimStyle.Render("  " + FormatData(model.Data(op.Details))))
		}
		b.WriteRune('\n')
	}
	if hidden > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("      ... %d more", hidden)))
		b.WriteRune('\n')
	}
}

// Chain renders a version chain, newest version first.
func (r *Renderer) Chain(v *chain.View) string {
	if v == nil {
		return dimStyle.Render("no row selected")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Version chain of row %d", v.RowID)))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d versions", v.Len())))
	b.WriteString("\n\n")

	for _, n := range v.Nodes {
		label := fmt.Sprintf("v%d  T%d", n.Rank, n.Version.TrxID)
		if n.Rank == v.Len() {
			label += "  (current)"
		}
		b.WriteString(headerStyle.Render(label))
		fmt.Fprintf(&b, "  %s\n", formatTime(n.Version.Timestamp))
		fmt.Fprintf(&b, "  data  %s\n", FormatData(n.Version.Data))
		if n.Undo != nil {
			fmt.Fprintf(&b, "  undo  #%d %s by T%d\n", n.Undo.UndoID, n.Undo.LogType, n.Undo.TrxID)
		}
		switch n.Connector {
		case chain.ConnectorRollPointer:
			b.WriteString(dimStyle.Render(fmt.Sprintf("   |  via roll_pointer -> undo #%d", *n.RollPointer)))
		case chain.ConnectorStructural:
			b.WriteString(dimStyle.Render("   |"))
		case chain.ConnectorTerminus:
			b.WriteString(dimStyle.Render("   =  earliest version"))
		}
		b.WriteRune('\n')
	}
	for _, p := range v.Problems {
		b.WriteString(errorStyle.Render("! " + p))
		b.WriteRune('\n')
	}
	return r.truncate(b.String())
}

// Comparison renders two panels side by side.
func (r *Renderer) Comparison(c *compare.Comparison) string {
	if c == nil {
		return dimStyle.Render("no comparison")
	}
	panelWidth := 0
	if r.Width > 0 {
		panelWidth = r.Width/2 - 4
	}
	left := r.panel(c.Left, panelWidth)
	right := r.panel(c.Right, panelWidth)

	title := titleStyle.Render(fmt.Sprintf("T%d vs T%d", c.Left.Transaction.ID, c.Right.Transaction.ID))
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
	return title + "\n" + body
}

func (r *Renderer) panel(p compare.Panel, width int) string {
	var b strings.Builder
	trx := p.Transaction
	b.WriteString(headerStyle.Render(fmt.Sprintf("T%d %s", trx.ID, trx.IsolationLevel)))
	b.WriteRune('\n')
	if rv := trx.ReadView; rv != nil {
		b.WriteString(dimStyle.Render(fmt.Sprintf("m_ids=%s min=%d max=%d", formatTrxIDs(rv.ActiveIDs), rv.MinTrxID, rv.MaxTrxID)))
	} else {
		b.WriteString(dimStyle.Render("no read view yet"))
	}
	b.WriteRune('\n')
	counts := p.Counts()
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d visible, %d hidden, %d unknown",
		counts[compare.StatusVisible],
		counts[compare.StatusNotVisible]+counts[compare.StatusDeletedBySelf],
		counts[compare.StatusUnknown])))
	b.WriteRune('\n')

	for _, cell := range p.Cells {
		b.WriteRune('\n')
		switch cell.Status {
		case compare.StatusVisible:
			b.WriteString(visibleStyle.Render(fmt.Sprintf("row %d visible", cell.RowID)))
			fmt.Fprintf(&b, "\n  %s", FormatData(cell.Data))
		case compare.StatusNotVisible, compare.StatusDeletedBySelf:
			b.WriteString(invisibleStyle.Render(fmt.Sprintf("row %d %s", cell.RowID, cell.Note)))
			b.WriteString(dimStyle.Render(fmt.Sprintf("\n  raw %s", FormatData(cell.Data))))
		default:
			b.WriteString(unknownStyle.Render(fmt.Sprintf("row %d %s", cell.RowID, compare.NoteUnknown)))
			if cell.Error != "" {
				b.WriteString(dimStyle.Render("\n  " + cell.Error))
			}
		}
	}

	style := panelStyle
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(b.String())
}

// Notifications renders live notifications, oldest first.
func (r *Renderer) Notifications(ns []notify.Notification) string {
	lines := make([]string, 0, len(ns))
	for _, n := range ns {
		switch n.Level {
		case notify.LevelError:
			lines = append(lines, errorStyle.Render("x "+n.Message))
		case notify.LevelSuccess:
			lines = append(lines, successStyle.Render("ok "+n.Message))
		default:
			lines = append(lines, "- "+n.Message)
		}
	}
	return r.truncate(strings.Join(lines, "\n"))
}

// truncate cuts every line to the renderer's width without breaking escapes.
func (r *Renderer) truncate(s string) string {
	if r.Width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if lipgloss.Width(line) > r.Width {
			lines[i] = ansi.Truncate(line, r.Width, "")
		}
	}
	return strings.Join(lines, "\n")
}

// FormatData renders row data as compact JSON with sorted keys.
func FormatData(d model.Data) string {
	if d == nil {
		return "null"
	}
	out, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("%v", map[string]interface{}(d))
	}
	return string(out)
}

func formatTime(t model.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Time.Local().Format(timeLayout)
}

func formatTrxPtr(id *model.TrxID) string {
	if id == nil {
		return "NULL"
	}
	return id.String()
}

func formatUndoPtr(id *model.UndoID) string {
	if id == nil {
		return "NULL"
	}
	return id.String()
}

func formatTrxIDs(ids []model.TrxID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

