package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/greatwhitesecurity/opshub/internal/upstream"
)

// CloudinaryConfig holds Cloudinary credentials.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	BaseURL   string // defaults to the public API
	Timeout   time.Duration
}

// Cloudinary performs signed image uploads through the Cloudinary SDK.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	client *upstream.Client
}

// NewCloudinary creates a Cloudinary asset store. Uploads fail with
// upstream.ErrNotConfigured when credentials are missing.
func NewCloudinary(cfg CloudinaryConfig, opts ...upstream.Option) *Cloudinary {
	opts = append([]upstream.Option{upstream.WithRetryPolicy(upstream.RetryThrottled)}, opts...)
	c := &Cloudinary{client: upstream.NewClient("cloudinary", cfg.Timeout, opts...)}

	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return c
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return c
	}

	if cfg.BaseURL != "" {
		cld.Config.API.UploadPrefix = cfg.BaseURL
	}

	cld.Config.API.Timeout = int64(c.client.Timeout() / time.Second)
	c.cld = cld

	return c
}

func (c *Cloudinary) Upload(ctx context.Context, filename string, content io.Reader, folder string) (*Asset, error) {
	if c.cld == nil {
		return nil, upstream.ErrNotConfigured
	}

	// Buffered so the body can be replayed on retry.
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	var out *uploader.UploadResult

	err = c.client.Call(ctx, func(ctx context.Context) error {
		var err error

		out, err = c.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
			Folder:           folder,
			FilenameOverride: filename,
		})
		if err != nil {
			return fmt.Errorf("cloudinary: %w", err)
		}

		if out.Error.Message != "" {
			return &upstream.Failure{Service: "cloudinary", Status: http.StatusBadGateway, Message: out.Error.Message}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Asset{PublicID: out.PublicID, SecureURL: out.SecureURL}, nil
}
