package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/billlist"
	"github.com/zombor/billed/internal/newbill"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))

// NewBillForm is what the new bill page needs to render a draft
type NewBillForm struct {
	Types     []string
	Values    url.Values
	Problems  map[string]string
	FileName  string
	FileURL   string
	Rejected  bool
	Uploading bool
}

// newBillForm builds the page view of a draft controller
func newBillForm(c *newbill.Controller, problems map[string]string) NewBillForm {
	form := NewBillForm{
		Types:     bill.Types,
		Values:    c.Fields().Values(),
		Problems:  problems,
		Uploading: c.State() == newbill.StateFileUploading,
	}
	ref, rejected := c.File()
	form.Rejected = rejected
	if ref != nil {
		form.FileName = ref.FileName
		form.FileURL = ref.FileURL
	}
	return form
}

// RenderBills writes the bill list page for a view state
func RenderBills(w io.Writer, state billlist.ViewState) error {
	if err := templates.ExecuteTemplate(w, "bills.html", state); err != nil {
		return fmt.Errorf("rendering bills: %w", err)
	}
	return nil
}

// RenderPreview writes the attachment modal
func RenderPreview(w io.Writer, modal billlist.Modal) error {
	if err := templates.ExecuteTemplate(w, "preview.html", modal); err != nil {
		return fmt.Errorf("rendering preview: %w", err)
	}
	return nil
}

// RenderNewBill writes the new bill page
func RenderNewBill(w io.Writer, form NewBillForm) error {
	if err := templates.ExecuteTemplate(w, "newbill.html", form); err != nil {
		return fmt.Errorf("rendering new bill form: %w", err)
	}
	return nil
}
