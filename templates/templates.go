package templates

import (
	_ "embed"
	"fmt"
	"html/template"
	"time"

	"github.com/gin-contrib/multitemplate"
)

var (
	//go:embed layout.html
	layout string
	//go:embed dashboard.html
	dashboard string
	//go:embed admin_dashboard.html
	adminDashboard string
)

var funcs = template.FuncMap{
	"percent": func(v *int) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%d%%", *v)
	},
	"stamp": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
}

// NewRenderer builds the HTML renderer with every page wrapped in the shared layout.
func NewRenderer() multitemplate.Renderer {
	r := multitemplate.NewRenderer()
	r.AddFromStringsFuncs("dashboard", funcs, layout, dashboard)
	r.AddFromStringsFuncs("admin_dashboard", funcs, layout, adminDashboard)
	return r
}
