// Package pages renders the branded HTML pages shown to technicians and
// customers who arrive through SMS links.
package pages

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

var layout = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Page is the content of a branded page.
type Page struct {
	Status  int
	Title   string
	Heading string
	Message string
}

var (
	LinkNotFound = Page{
		Status:  http.StatusNotFound,
		Title:   "Link not found",
		Heading: "This link has expired",
		Message: "The link you followed is no longer active. Please contact our office if you need a new one.",
	}
	InvalidLink = Page{
		Status:  http.StatusBadRequest,
		Title:   "Invalid link",
		Heading: "This link is not valid",
		Message: "We could not recognize this response link. It may have expired or been mistyped.",
	}
	RecordNotFound = Page{
		Status:  http.StatusNotFound,
		Title:   "Not found",
		Heading: "This job is no longer available",
		Message: "The job or technician this link refers to could not be found. No response was recorded.",
	}
	LinkUnavailable = Page{
		Status:  http.StatusServiceUnavailable,
		Title:   "Something went wrong",
		Heading: "We could not open this link",
		Message: "Something went wrong on our side. Please try the link again in a few minutes or call the office.",
	}
	RateLimited = Page{
		Status:  http.StatusTooManyRequests,
		Title:   "Too many requests",
		Heading: "Please slow down",
		Message: "We received too many requests from your connection. Please wait a minute and open the link again.",
	}
	Unavailable = Page{
		Status:  http.StatusInternalServerError,
		Title:   "Something went wrong",
		Heading: "We could not record your response",
		Message: "Something went wrong on our side. Please try the link again in a few minutes or call the office.",
	}
)

// ResponseRecorded confirms a technician's answer.
func ResponseRecorded(responderName string, available bool) Page {
	msg := "Thanks for letting us know you are not available for this job."
	if available {
		msg = "Thanks! We have recorded that you are available. The office will follow up with details."
	}

	heading := "Response recorded"
	if responderName != "" {
		heading = "Thanks, " + responderName
	}

	return Page{
		Status:  http.StatusOK,
		Title:   "Response recorded",
		Heading: heading,
		Message: msg,
	}
}

// Render executes the page into HTML.
func Render(p Page) ([]byte, error) {
	var buf bytes.Buffer

	if err := layout.ExecuteTemplate(&buf, "layout", p); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
