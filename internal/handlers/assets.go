package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/greatwhitesecurity/opshub/internal/assets"
	"go.uber.org/zap"
)

// AssetHandler uploads job photos and documents to the asset store.
type AssetHandler struct {
	store  assets.Store
	logger *zap.Logger
}

func NewAssetHandler(store assets.Store, logger *zap.Logger) *AssetHandler {
	return &AssetHandler{store: store, logger: logger}
}

func (h *AssetHandler) Upload(ctx context.Context, req *UploadAssetRequest) (*UploadAssetResponse, error) {
	files := req.RawBody.File["file"]
	if len(files) == 0 {
		return nil, huma.Error400BadRequest("missing file part")
	}

	header := files[0]

	file, err := header.Open()
	if err != nil {
		return nil, huma.Error400BadRequest("unreadable file part")
	}
	defer file.Close()

	var folder string
	if values := req.RawBody.Value["folder"]; len(values) > 0 {
		folder = values[0]
	}

	asset, err := h.store.Upload(ctx, header.Filename, file, folder)
	if err != nil {
		h.logger.Error("failed to upload asset", zap.String("filename", header.Filename), zap.Error(err))

		return nil, upstreamError("failed to upload asset", err)
	}

	resp := &UploadAssetResponse{}
	resp.Body.PublicID = asset.PublicID
	resp.Body.SecureURL = asset.SecureURL

	return resp, nil
}
