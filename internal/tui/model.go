// Package tui is the interactive grid editor.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/gridedit/internal/session"
	"github.com/leapstack-labs/gridedit/pkg/overlay"
	"github.com/mattn/go-runewidth"
)

const (
	maxColWidth = 24
	minColWidth = 3
	// chromeLines is every line of View that is not a grid row.
	chromeLines = 7
)

type prompt int

const (
	promptNone prompt = iota
	promptFilter
)

// commitDoneMsg carries the outcome of an asynchronous Submit.
type commitDoneMsg struct {
	res session.CommitResult
	err error
}

// fetchDoneMsg carries the outcome of a re-query.
type fetchDoneMsg struct {
	what string
	err  error
}

// Options configures a Model.
type Options struct {
	// Renderer styles the output. Nil uses lipgloss's default renderer.
	Renderer *lipgloss.Renderer
	Logger   *slog.Logger
}

// Model is the bubbletea model of one editable grid.
type Model struct {
	ctx    context.Context
	sess   *session.Session
	logger *slog.Logger
	styles styles
	keys   keyMap

	input   textinput.Model
	spinner spinner.Model
	help    help.Model

	focus       overlay.Position
	offset      int
	width       int
	height      int
	prompt      prompt
	sort        *session.SortSpec
	status      string
	err         error
	confirmQuit bool
}

// New creates a Model over a loaded session.
func New(ctx context.Context, sess *session.Session, opts Options) Model {
	r := opts.Renderer
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = r.NewStyle().Foreground(primaryColor)

	st := newStyles(r)
	h := help.New()
	h.Styles.ShortKey = st.header
	h.Styles.ShortDesc = st.muted
	h.Styles.FullKey = st.header
	h.Styles.FullDesc = st.muted

	return Model{
		ctx:     ctx,
		sess:    sess,
		logger:  logger,
		styles:  st,
		keys:    keys,
		input:   ti,
		spinner: sp,
		help:    h,
		err:     sess.LastError(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.scroll()
		return m, nil

	case commitDoneMsg:
		switch {
		case msg.err != nil:
			m.fail(msg.err)
		case msg.res.Plan.Empty():
			m.notify("Nothing to commit.")
		default:
			m.notify(fmt.Sprintf("Committed %d change(s).", len(msg.res.Calls)))
		}
		m.syncEdit()
		m.clamp()
		return m, nil

	case fetchDoneMsg:
		if msg.err != nil {
			m.fail(msg.err)
		} else {
			m.notify(msg.what)
		}
		m.syncEdit()
		m.clamp()
		return m, nil

	case spinner.TickMsg:
		if !m.sess.Committing() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		if _, editing := m.sess.Editing(); editing {
			return m.updateEditing(msg)
		}
		return m.updateGrid(msg)
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Edit):
		if err := m.sess.ConfirmEdit(); err != nil {
			m.fail(err)
			return m, nil
		}
		m.input.Blur()
		m.err = nil
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		pos, ok, err := m.sess.TabAdvance()
		if err != nil {
			m.fail(err)
			return m, nil
		}
		m.err = nil
		if !ok {
			m.input.Blur()
			return m, nil
		}
		m.focus = pos
		m.scroll()
		cmd := m.openInput()
		return m, cmd

	case key.Matches(msg, m.keys.Cancel):
		m.sess.CancelEdit()
		m.input.Blur()
		m.err = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if err := m.sess.SetDraft(m.input.Value()); err != nil {
		m.fail(err)
	}
	return m, cmd
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Edit):
		where := m.input.Value()
		m.closePrompt()
		what := "Filter cleared."
		if strings.TrimSpace(where) != "" {
			what = "Filtered: " + where
		}
		return m, m.fetch(what, func(ctx context.Context) error { return m.sess.Filter(ctx, where) })

	case key.Matches(msg, m.keys.Cancel):
		m.closePrompt()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	quitArmed := m.confirmQuit
	m.confirmQuit = false

	rows, cols := m.dims()
	switch {
	case key.Matches(msg, m.keys.Quit):
		if n := m.sess.PendingCount(); n > 0 && !quitArmed {
			m.confirmQuit = true
			m.notify(fmt.Sprintf("%d uncommitted change(s). Press q again to discard them and quit.", n))
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.move(-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.move(1, 0)
	case key.Matches(msg, m.keys.Left):
		m.move(0, -1)
	case key.Matches(msg, m.keys.Right):
		m.move(0, 1)
	case key.Matches(msg, m.keys.Tab):
		m.focus = overlay.NextPosition(m.focus, rows, cols)
		m.scroll()

	case key.Matches(msg, m.keys.Edit):
		if rows == 0 {
			return m, nil
		}
		if err := m.sess.BeginEdit(m.focus.Row, m.focus.Col); err != nil {
			m.fail(err)
			return m, nil
		}
		cmd := m.openInput()
		return m, cmd

	case key.Matches(msg, m.keys.Cancel):
		m.sess.ClearSelection()
		m.err, m.status = nil, ""

	case key.Matches(msg, m.keys.SetNull):
		m.check(m.sess.SetNull(m.focus.Row, m.focus.Col))
	case key.Matches(msg, m.keys.SetDefault):
		m.check(m.sess.SetDefault(m.focus.Row, m.focus.Col))
	case key.Matches(msg, m.keys.Revert):
		m.check(m.sess.RevertCell(m.focus.Row, m.focus.Col))

	case key.Matches(msg, m.keys.Delete):
		m.check(m.sess.ToggleDeleteRow(m.focus.Row))
		m.clamp()

	case key.Matches(msg, m.keys.Insert):
		idx, _, err := m.sess.AddInsertion(nil)
		if err != nil {
			m.fail(err)
			return m, nil
		}
		m.focus = overlay.Position{Row: idx}
		m.scroll()

	case key.Matches(msg, m.keys.Select):
		m.check(m.sess.Click(m.focus.Row, overlay.Modifiers{}))
	case key.Matches(msg, m.keys.SelectRange):
		m.check(m.sess.Click(m.focus.Row, overlay.Modifiers{Shift: true}))
	case key.Matches(msg, m.keys.SelectAll):
		m.sess.ToggleSelectAll()

	case key.Matches(msg, m.keys.Commit):
		cmd := m.commit(false)
		return m, cmd
	case key.Matches(msg, m.keys.CommitAll):
		cmd := m.commit(true)
		return m, cmd

	case key.Matches(msg, m.keys.Rollback):
		m.sess.Rollback(false)
		m.clamp()
		m.notify("Rolled back.")
	case key.Matches(msg, m.keys.RollbackAll):
		m.sess.Rollback(true)
		m.clamp()
		m.notify("Rolled back all changes.")

	case key.Matches(msg, m.keys.Sort):
		cmd := m.cycleSort()
		return m, cmd

	case key.Matches(msg, m.keys.Filter):
		m.prompt = promptFilter
		m.input.Prompt = "filter: "
		m.input.SetValue("")
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetch("Refreshed.", m.sess.Refresh)

	case key.Matches(msg, m.keys.PageDown):
		return m, m.fetch("", func(ctx context.Context) error {
			_, err := m.sess.NextPage(ctx)
			return err
		})
	case key.Matches(msg, m.keys.PageUp):
		return m, m.fetch("", func(ctx context.Context) error {
			_, err := m.sess.PrevPage(ctx)
			return err
		})

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// openInput loads the open edit's draft into the text input.
func (m *Model) openInput() tea.Cmd {
	e, ok := m.sess.Editing()
	if !ok {
		return nil
	}
	m.input.Prompt = ""
	m.input.SetValue(e.Draft)
	m.input.CursorEnd()
	return m.input.Focus()
}

// syncEdit follows the open cell after a refresh re-addressed it, and
// closes the input when the cell's row left the grid.
func (m *Model) syncEdit() {
	if m.prompt != promptNone || !m.input.Focused() {
		return
	}
	if e, ok := m.sess.Editing(); ok {
		m.focus = e.Position
		return
	}
	m.input.Blur()
	m.input.SetValue("")
	m.status = strings.TrimSpace(m.status + " The edited row is gone; its draft was discarded.")
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.input.Prompt = ""
	m.input.SetValue("")
}

func (m *Model) commit(scopeAll bool) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	m.notify("Committing...")
	run := func() tea.Msg {
		res, err := sess.Submit(ctx, scopeAll)
		return commitDoneMsg{res: res, err: err}
	}
	return tea.Batch(run, m.spinner.Tick)
}

func (m *Model) fetch(what string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return fetchDoneMsg{what: what, err: fn(ctx)}
	}
}

// cycleSort moves the focused column through ascending, descending and
// unsorted.
func (m *Model) cycleSort() tea.Cmd {
	_, cols := m.dims()
	if cols == 0 {
		return nil
	}
	col := m.sess.Table().Columns[m.focus.Col]

	var spec *session.SortSpec
	what := "Sort cleared."
	switch {
	case m.sort == nil || m.sort.Column != col:
		spec = &session.SortSpec{Column: col}
		what = "Sorted by " + col + "."
	case !m.sort.Desc:
		spec = &session.SortSpec{Column: col, Desc: true}
		what = "Sorted by " + col + " descending."
	}
	if n := m.sess.PendingCount(); n > 0 {
		what += fmt.Sprintf(" Discarded %d change(s).", n)
	}
	m.sort = spec
	return m.fetch(what, func(ctx context.Context) error { return m.sess.Sort(ctx, spec) })
}

func (m *Model) check(err error) {
	if err != nil {
		m.fail(err)
	}
}

func (m *Model) fail(err error) {
	m.logger.Debug("grid action failed", "error", err)
	m.err = err
	m.status = ""
}

func (m *Model) notify(s string) {
	m.err = nil
	m.status = s
}

func (m Model) dims() (rows, cols int) {
	return len(m.sess.MergedRows()), len(m.sess.Table().Columns)
}

func (m *Model) move(dRow, dCol int) {
	m.focus.Row += dRow
	m.focus.Col += dCol
	m.clamp()
}

// clamp keeps the focus inside the grid.
func (m *Model) clamp() {
	rows, cols := m.dims()
	m.focus.Row = min(max(m.focus.Row, 0), max(rows-1, 0))
	m.focus.Col = min(max(m.focus.Col, 0), max(cols-1, 0))
	m.scroll()
}

// scroll keeps the focused row inside the visible window.
func (m *Model) scroll() {
	visible := m.visibleRows()
	if visible <= 0 {
		m.offset = 0
		return
	}
	if m.focus.Row < m.offset {
		m.offset = m.focus.Row
	}
	if m.focus.Row >= m.offset+visible {
		m.offset = m.focus.Row - visible + 1
	}
}

// visibleRows is zero before the terminal size is known.
func (m Model) visibleRows() int {
	if m.height == 0 {
		return 0
	}
	return max(m.height-chromeLines, 1)
}

// Focus returns the focused cell.
func (m Model) Focus() overlay.Position { return m.focus }

// View implements tea.Model.
func (m Model) View() string {
	v := m.sess.View()
	var b strings.Builder

	b.WriteString(m.renderTitle(v))
	b.WriteString("\n\n")
	b.WriteString(m.renderGrid(v))
	b.WriteString(m.renderStatus(v))
	b.WriteString("\n")

	switch {
	case m.prompt == promptFilter:
		b.WriteString(m.styles.editor.Render(m.input.View()))
	case v.Editing != nil && v.Editing.Col < len(v.Columns):
		b.WriteString(m.styles.editor.Render(v.Columns[v.Editing.Col] + ": "))
		b.WriteString(m.input.View())
		if m.err != nil {
			b.WriteString("  " + m.styles.err.Render("Error: "+m.err.Error()))
		}
	case m.err != nil:
		b.WriteString(m.styles.err.Render("Error: " + m.err.Error()))
	case m.status != "":
		b.WriteString(m.styles.muted.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderTitle(v session.GridView) string {
	name := v.Table
	if name == "" {
		name = "query"
	}
	title := m.styles.title.Render("gridedit · " + name)
	if v.ReadOnly {
		title += " " + m.styles.muted.Render("[read-only]")
	}
	return title
}

func (m Model) renderGrid(v session.GridView) string {
	if len(v.Columns) == 0 {
		return m.styles.muted.Render("(no columns)") + "\n"
	}

	widths := make([]int, len(v.Columns))
	for i, c := range v.Columns {
		widths[i] = max(runewidth.StringWidth(c), minColWidth)
	}
	for _, rv := range v.Rows {
		for i, cell := range rv.Cells {
			widths[i] = max(widths[i], runewidth.StringWidth(cell.DisplayValue)+1)
		}
	}
	for i := range widths {
		widths[i] = min(widths[i], maxColWidth)
	}
	numWidth := max(len(strconv.Itoa(len(v.Rows))), 1)

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", 2+numWidth+1))
	for i, c := range v.Columns {
		b.WriteString(m.styles.header.Render(fit(c, widths[i])))
		b.WriteString(" ")
	}
	b.WriteString("\n")
	total := 2 + numWidth + 1
	for _, w := range widths {
		total += w + 1
	}
	b.WriteString(m.styles.muted.Render(strings.Repeat("─", total)))
	b.WriteString("\n")

	if len(v.Rows) == 0 {
		b.WriteString(m.styles.muted.Render("(0 rows)"))
		b.WriteString("\n")
		return b.String()
	}

	start, end := 0, len(v.Rows)
	if visible := m.visibleRows(); visible > 0 {
		start = min(m.offset, len(v.Rows))
		end = min(start+visible, len(v.Rows))
	}
	for _, rv := range v.Rows[start:end] {
		b.WriteString(m.renderRow(v, rv, widths, numWidth))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderRow(v session.GridView, rv session.RowView, widths []int, numWidth int) string {
	var b strings.Builder

	sel, mark := " ", " "
	if rv.Selected {
		sel = m.styles.selected.Render(">")
	}
	switch {
	case rv.PendingDeletion:
		mark = m.styles.deleted.Render("D")
	case rv.Insertion:
		mark = m.styles.inserted.Render("+")
	case rv.Modified:
		mark = m.styles.pending.Render("~")
	}
	b.WriteString(sel + mark)
	b.WriteString(m.styles.muted.Render(fmt.Sprintf("%*d", numWidth, rv.Index+1)))
	b.WriteString(" ")

	for i, cell := range rv.Cells {
		text := cell.DisplayValue
		if cell.HasPendingChange {
			text += "*"
		}
		if v.Editing != nil && v.Editing.Row == rv.Index && v.Editing.Col == i {
			text = v.Editing.Draft
		}
		text = fit(text, widths[i])

		style := m.styles.cell
		switch {
		case rv.PendingDeletion:
			style = m.styles.deleted
		case cell.HasPendingChange:
			style = m.styles.pending
		case cell.IsAutoIncrementPlaceholder, cell.IsDefaultValuePlaceholder:
			style = m.styles.muted
		case rv.Insertion:
			style = m.styles.inserted
		}
		if rv.Index == m.focus.Row && i == m.focus.Col {
			style = style.Background(focusBg).Bold(true)
		}
		b.WriteString(style.Render(text))
		b.WriteString(" ")
	}
	return b.String()
}

func (m Model) renderStatus(v session.GridView) string {
	parts := []string{}
	if n := len(v.Rows); n > 0 && m.focus.Col < len(v.Columns) {
		parts = append(parts, fmt.Sprintf("row %d/%d · %s", m.focus.Row+1, n, v.Columns[m.focus.Col]))
	}
	if p := v.Pagination; p != nil {
		pages := max(1, int((p.TotalRows+int64(p.PageSize)-1)/int64(max(p.PageSize, 1))))
		parts = append(parts, fmt.Sprintf("page %d/%d", p.Page, pages))
	}
	if m.sort != nil {
		dir := "asc"
		if m.sort.Desc {
			dir = "desc"
		}
		parts = append(parts, "sort "+m.sort.Column+" "+dir)
	}
	if v.Pending > 0 {
		parts = append(parts, m.styles.pending.Render(fmt.Sprintf("%d pending", v.Pending)))
	}
	if v.Committing {
		parts = append(parts, m.spinner.View()+" committing")
	}
	return m.styles.status.Render(strings.Join(parts, " · "))
}

// fit truncates or pads s to exactly w cells.
func fit(s string, w int) string {
	s = strings.ReplaceAll(s, "\n", "⏎")
	if runewidth.StringWidth(s) > w {
		s = runewidth.Truncate(s, w, "…")
	}
	return runewidth.FillRight(s, w)
}

// ErrNotLoaded is returned by Run when the session has no result to show.
var ErrNotLoaded = errors.New("nothing to browse: no result loaded")

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, sess *session.Session, opts Options, progOpts ...tea.ProgramOption) error {
	if sess.Snapshot() == nil {
		return ErrNotLoaded
	}
	progOpts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, progOpts...)
	p := tea.NewProgram(New(ctx, sess, opts), progOpts...)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
