package report

import (
	"fmt"
	"time"

	"expense-manager/internal/model"
)

// DocumentModel is the abstract paginated layout handed to a downstream
// encoder (PDF or otherwise). This package never produces file bytes.
type DocumentModel struct {
	Title       string    `json:"title"`
	Columns     []string  `json:"columns"`
	Pages       []Page    `json:"pages"`
	TotalsRow   Row       `json:"totals_row"`
	Currency    string    `json:"currency"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Page holds at most the renderer's rows-per-page line rows. Column headers
// repeat on every page via DocumentModel.Columns.
type Page struct {
	Number int    `json:"number"`
	Rows   []Row  `json:"rows"`
	Footer string `json:"footer"`
}

// Row is one rendered table line.
type Row struct {
	Cells []string `json:"cells"`
}

// DefaultRowsPerPage bounds line rows per page when no override is configured.
const DefaultRowsPerPage = 25

// Renderer maps a ReportModel to a DocumentModel with deterministic pagination.
type Renderer struct {
	rowsPerPage int
}

// NewRenderer constructs a Renderer. Non-positive rowsPerPage falls back to
// DefaultRowsPerPage.
func NewRenderer(rowsPerPage int) *Renderer {
	if rowsPerPage <= 0 {
		rowsPerPage = DefaultRowsPerPage
	}
	return &Renderer{rowsPerPage: rowsPerPage}
}

// Render lays the report out page by page. An empty report still renders one
// page, so the totals row and title always have a home.
func (r *Renderer) Render(rep *model.ReportModel) *DocumentModel {
	rows := make([]Row, 0, len(rep.LineItems))
	for _, li := range rep.LineItems {
		rows = append(rows, Row{Cells: []string{string(li.Category), li.Subtotal.String()}})
	}

	pageCount := (len(rows) + r.rowsPerPage - 1) / r.rowsPerPage
	if pageCount == 0 {
		pageCount = 1
	}
	pages := make([]Page, 0, pageCount)
	for n := 0; n < pageCount; n++ {
		lo := n * r.rowsPerPage
		hi := min(lo+r.rowsPerPage, len(rows))
		pages = append(pages, Page{
			Number: n + 1,
			Rows:   rows[lo:hi],
			Footer: fmt.Sprintf("Page %d of %d", n+1, pageCount),
		})
	}

	return &DocumentModel{
		Title:       fmt.Sprintf("Expense report %s", rep.Period.Key()),
		Columns:     []string{"Category", "Amount"},
		Pages:       pages,
		TotalsRow:   Row{Cells: []string{"Total", rep.GrandTotal.String()}},
		Currency:    rep.Currency,
		GeneratedAt: rep.GeneratedAt,
	}
}
