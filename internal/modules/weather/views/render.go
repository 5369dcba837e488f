package views

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"strconv"

	"ukweather/internal/modules/weather/stats"
	"ukweather/internal/modules/weather/types"
)

//go:embed templates
var viewsFS embed.FS

var dashboardTmpl *template.Template

var funcs = template.FuncMap{
	"temp": formatTemp,
}

func formatTemp(t types.Temperature) string {
	if !t.Valid {
		return "n/a"
	}
	return strconv.FormatFloat(t.Celsius, 'f', 1, 64)
}

// loadTemplatesFromFS loads dashboard templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("dashboard").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates loads embedded dashboard templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// PaginationItem is one entry in the pagination bar: either a page number or an ellipsis.
type PaginationItem struct {
	Page     int
	Ellipsis bool
}

// RecordsData is the view model for the records table partial.
type RecordsData struct {
	Columns     []string
	Records     []types.Record
	Fields      []types.Field
	Total       int
	CurrentPage int
	TotalPages  int
	HasPrev     bool
	HasNext     bool
	PrevPage    int
	NextPage    int
	PageItems   []PaginationItem
}

// DashboardData is the view model for the dashboard page. Stats is nil when
// the store is empty.
type DashboardData struct {
	Stats   *stats.Statistics
	Records RecordsData
}

// NewRecordsData fills the column headers and paging flags for rows.
func NewRecordsData(records []types.Record, total, page, totalPages int, items []PaginationItem) RecordsData {
	cols := make([]string, 0, len(types.Fields))
	for _, f := range types.Fields {
		cols = append(cols, f.Name())
	}
	return RecordsData{
		Columns:     cols,
		Records:     records,
		Fields:      types.Fields,
		Total:       total,
		CurrentPage: page,
		TotalPages:  totalPages,
		HasPrev:     page > 1,
		HasNext:     page < totalPages,
		PrevPage:    page - 1,
		NextPage:    page + 1,
		PageItems:   items,
	}
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderRecordsPartial executes only the records table into w.
// Use for HTMX fragment refresh when paging.
func RenderRecordsPartial(w io.Writer, data *RecordsData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "partials/records.html", data)
}
