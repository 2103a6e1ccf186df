// Package assets uploads images to the hosted asset store.
package assets

import (
	"context"
	"io"
)

// Asset is an uploaded file.
type Asset struct {
	PublicID  string
	SecureURL string
}

// Store uploads files into a folder.
type Store interface {
	Upload(ctx context.Context, filename string, content io.Reader, folder string) (*Asset, error)
}
