package handlers

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/greatwhitesecurity/opshub/internal/pages"
)

const noStore = "no-store"

// renderPage answers with a branded page. Technician and customer endpoints
// use it for failures too, so they never see a JSON error body.
func renderPage(page pages.Page) (*PageResponse, error) {
	body, err := pages.Render(page)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to render page")
	}

	return &PageResponse{
		Status:       page.Status,
		ContentType:  "text/html; charset=utf-8",
		CacheControl: noStore,
		Body:         body,
	}, nil
}
