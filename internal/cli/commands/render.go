package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/gridedit/internal/cli/output"
	"github.com/leapstack-labs/gridedit/internal/session"
	"github.com/leapstack-labs/gridedit/internal/state"
	"github.com/leapstack-labs/gridedit/pkg/overlay"
)

// Row markers in the grid's first column.
const (
	markSelected  = ">"
	markDeleted   = "D"
	markInserted  = "+"
	markModified  = "~"
	markUnchanged = " "
)

// GridOutput is the JSON/YAML shape of a grid.
type GridOutput struct {
	Table     string           `json:"table" yaml:"table"`
	Columns   []string         `json:"columns" yaml:"columns"`
	Rows      []GridRowOutput  `json:"rows" yaml:"rows"`
	Page      int              `json:"page,omitempty" yaml:"page,omitempty"`
	TotalRows int64            `json:"total_rows,omitempty" yaml:"total_rows,omitempty"`
	Pending   int              `json:"pending" yaml:"pending"`
	ReadOnly  bool             `json:"read_only" yaml:"read_only"`
}

// GridRowOutput is one row of GridOutput. Values are display values.
type GridRowOutput struct {
	Status string            `json:"status" yaml:"status"`
	Values map[string]string `json:"values" yaml:"values"`
}

// PlanOutput is the JSON/YAML shape of a pending commit.
type PlanOutput struct {
	Table     string         `json:"table" yaml:"table"`
	PKColumn  string         `json:"pk_column,omitempty" yaml:"pk_column,omitempty"`
	Updates   []UpdateOutput `json:"updates" yaml:"updates"`
	Deletions []string       `json:"deletions" yaml:"deletions"`
	Inserts   []InsertOutput `json:"inserts" yaml:"inserts"`
}

// UpdateOutput is one planned cell update.
type UpdateOutput struct {
	PK     string `json:"pk" yaml:"pk"`
	Column string `json:"column" yaml:"column"`
	Value  string `json:"value" yaml:"value"`
}

// InsertOutput is one planned insertion.
type InsertOutput struct {
	TempID string            `json:"temp_id" yaml:"temp_id"`
	Values map[string]string `json:"values" yaml:"values"`
}

func rowStatus(rv session.RowView) string {
	switch {
	case rv.PendingDeletion:
		return "deleted"
	case rv.Insertion:
		return "inserted"
	case rv.Modified:
		return "modified"
	}
	return "unchanged"
}

func rowMarker(rv session.RowView) string {
	sel := " "
	if rv.Selected {
		sel = markSelected
	}
	switch {
	case rv.PendingDeletion:
		return sel + markDeleted
	case rv.Insertion:
		return sel + markInserted
	case rv.Modified:
		return sel + markModified
	}
	return sel + markUnchanged
}

// renderGrid writes the session's current page.
func renderGrid(r *output.Renderer, v session.GridView) error {
	switch r.Mode() {
	case output.ModeJSON:
		return r.JSON(gridOutput(v))
	case output.ModeYAML:
		return r.YAML(gridOutput(v))
	}

	styles := r.Styles()
	header := append([]string{"", "#"}, v.Columns...)
	rows := make([][]string, len(v.Rows))
	for i, rv := range v.Rows {
		row := make([]string, 0, len(header))
		row = append(row, rowMarker(rv), strconv.Itoa(rv.Index+1))
		for _, cell := range rv.Cells {
			text := cell.DisplayValue
			switch {
			case rv.PendingDeletion:
				text = styles.Deleted.Render(text)
			case cell.HasPendingChange:
				text = styles.Pending.Render(text + "*")
			case cell.IsAutoIncrementPlaceholder, cell.IsDefaultValuePlaceholder:
				text = styles.Muted.Render(text)
			}
			row = append(row, text)
		}
		rows[i] = row
	}
	if len(rows) == 0 {
		r.Println("(0 rows)")
	} else {
		r.Table(header, rows)
	}
	r.Println(gridFooter(v))
	return nil
}

func gridFooter(v session.GridView) string {
	var parts []string
	if p := v.Pagination; p != nil {
		pages := max(1, int((p.TotalRows+int64(p.PageSize)-1)/int64(max(p.PageSize, 1))))
		parts = append(parts, fmt.Sprintf("page %d/%d (%d rows)", p.Page, pages, p.TotalRows))
	} else {
		parts = append(parts, fmt.Sprintf("%d rows", len(v.Rows)))
	}
	if v.Pending > 0 {
		parts = append(parts, fmt.Sprintf("%d pending", v.Pending))
	}
	if v.ReadOnly {
		parts = append(parts, "read-only")
	}
	if v.Committing {
		parts = append(parts, "committing")
	}
	return strings.Join(parts, " · ")
}

func gridOutput(v session.GridView) GridOutput {
	out := GridOutput{
		Table:    v.Table,
		Columns:  v.Columns,
		Rows:     make([]GridRowOutput, len(v.Rows)),
		Pending:  v.Pending,
		ReadOnly: v.ReadOnly,
	}
	if v.Pagination != nil {
		out.Page = v.Pagination.Page
		out.TotalRows = v.Pagination.TotalRows
	}
	for i, rv := range v.Rows {
		values := make(map[string]string, len(v.Columns))
		for col, name := range v.Columns {
			values[name] = rv.Cells[col].DisplayValue
		}
		out.Rows[i] = GridRowOutput{Status: rowStatus(rv), Values: values}
	}
	return out
}

func planOutput(p overlay.Plan) PlanOutput {
	out := PlanOutput{
		Table:     p.Table,
		PKColumn:  p.PKColumn,
		Updates:   make([]UpdateOutput, len(p.Updates)),
		Deletions: make([]string, len(p.Deletions)),
		Inserts:   make([]InsertOutput, len(p.Inserts)),
	}
	for i, u := range p.Updates {
		out.Updates[i] = UpdateOutput{PK: u.PK.String(), Column: u.Column, Value: u.Change.String()}
	}
	for i, pk := range p.Deletions {
		out.Deletions[i] = pk.String()
	}
	for i, ins := range p.Inserts {
		values := make(map[string]string, len(ins.Data))
		for _, cv := range ins.Data {
			values[cv.Column] = overlay.DisplayValue(cv.Value)
		}
		out.Inserts[i] = InsertOutput{TempID: ins.TempID, Values: values}
	}
	return out
}

// renderPlan writes the calls a commit would issue.
func renderPlan(r *output.Renderer, p overlay.Plan) error {
	switch r.Mode() {
	case output.ModeJSON:
		return r.JSON(planOutput(p))
	case output.ModeYAML:
		return r.YAML(planOutput(p))
	}
	if p.Empty() {
		r.Println("Nothing to commit.")
		return nil
	}

	rows := make([][]string, 0, p.Calls())
	for _, pk := range p.Deletions {
		rows = append(rows, []string{"delete", pk.String(), "", ""})
	}
	for _, u := range p.Updates {
		rows = append(rows, []string{"update", u.PK.String(), u.Column, u.Change.String()})
	}
	for _, ins := range p.Inserts {
		rows = append(rows, []string{"insert", "", "", describeInsert(ins)})
	}
	r.Table([]string{"op", p.PKColumn, "column", "value"}, rows)
	r.Printf("%d update(s), %d deletion(s), %d insert(s) on %s\n",
		len(p.Updates), len(p.Deletions), len(p.Inserts), p.Table)
	return nil
}

func describeInsert(ins overlay.Insert) string {
	if len(ins.Data) == 0 {
		return "DEFAULT VALUES"
	}
	parts := make([]string, len(ins.Data))
	for i, cv := range ins.Data {
		parts[i] = cv.Column + "=" + overlay.DisplayValue(cv.Value)
	}
	return strings.Join(parts, ", ")
}

// renderBatches writes a journal listing.
func renderBatches(r *output.Renderer, batches []*state.Batch) error {
	switch r.Mode() {
	case output.ModeJSON:
		return r.JSON(batches)
	case output.ModeYAML:
		return r.YAML(batches)
	}
	if len(batches) == 0 {
		r.Println("No commits recorded.")
		return nil
	}
	styles := r.Styles()
	rows := make([][]string, len(batches))
	for i, b := range batches {
		status := styles.Success.Render(string(b.Status))
		if b.Status == state.BatchFailed {
			status = styles.Error.Render(string(b.Status))
		}
		rows[i] = []string{
			b.ID,
			b.StartedAt.Local().Format(time.DateTime),
			b.Table,
			status,
			strconv.Itoa(b.Updates),
			strconv.Itoa(b.Deletions),
			strconv.Itoa(b.Inserts),
			strconv.Itoa(b.Failed),
			b.Duration.Round(time.Millisecond).String(),
		}
	}
	r.Table([]string{"id", "started", "table", "status", "updates", "deletions", "inserts", "failed", "duration"}, rows)
	return nil
}

// renderBatch writes one journal entry with its calls.
func renderBatch(r *output.Renderer, b *state.Batch) error {
	switch r.Mode() {
	case output.ModeJSON:
		return r.JSON(b)
	case output.ModeYAML:
		return r.YAML(b)
	}
	r.Println(output.FormatHeader(2, "Commit "+b.ID))
	r.Println(output.FormatKeyValue("Table", b.Table))
	r.Println(output.FormatKeyValue("Status", string(b.Status)))
	r.Println(output.FormatKeyValue("Started", b.StartedAt.Local().Format(time.DateTime)))
	r.Println(output.FormatKeyValue("Duration", b.Duration.Round(time.Millisecond).String()))
	if b.Error != "" {
		r.Println(output.FormatKeyValue("Error", b.Error))
	}
	r.Println("")

	rows := make([][]string, len(b.Calls))
	for i, c := range b.Calls {
		rows[i] = []string{strconv.Itoa(c.Seq), c.Kind, c.PK, c.Column, c.Value, c.Error}
	}
	r.Table([]string{"seq", "kind", "pk", "column", "value", "error"}, rows)
	return nil
}
