package http

import (
	"embed"
	"html/template"
	"io"
	"strconv"

	"github.com/robertarktes/event-rsvp/internal/form"
)

//go:embed templates/page.html
var templatesFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templatesFS, "templates/page.html"))

type pageView struct {
	form.State
	DepositText string
}

func renderPage(w io.Writer, st form.State) error {
	return pageTmpl.Execute(w, pageView{
		State:       st,
		DepositText: strconv.FormatFloat(st.Deposit, 'f', -1, 64),
	})
}
