package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/greatwhitesecurity/opshub/internal/events"
	"github.com/greatwhitesecurity/opshub/internal/messaging"
	"github.com/greatwhitesecurity/opshub/internal/pages"
	"github.com/greatwhitesecurity/opshub/internal/shortlink"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const qrCodeSize = 256

// LinkHandler serves short-link redirects and the link admin API.
type LinkHandler struct {
	links           *shortlink.Service
	baseURL         string
	publishCreated  messaging.Publish[events.LinkCreated]
	publishResolved messaging.Publish[events.LinkResolved]
	logger          *zap.Logger
}

// NewLinkHandler creates a new link handler. Short URLs are built from baseURL.
func NewLinkHandler(
	links *shortlink.Service,
	baseURL string,
	publishCreated messaging.Publish[events.LinkCreated],
	publishResolved messaging.Publish[events.LinkResolved],
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		links:           links,
		baseURL:         strings.TrimRight(baseURL, "/"),
		publishCreated:  publishCreated,
		publishResolved: publishResolved,
		logger:          logger,
	}
}

func (h *LinkHandler) CreateShortLink(ctx context.Context, req *CreateShortLinkRequest) (*CreateShortLinkResponse, error) {
	if !validTarget(req.Body.Target) {
		return nil, huma.Error400BadRequest("target must be an absolute http(s) URL or a path starting with /")
	}

	link, err := h.create(ctx, req.Body.Target, req.Body.EntityID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to create short link")
	}

	resp := &CreateShortLinkResponse{Body: h.view(link)}
	resp.Location = resp.Body.ShortURL

	return resp, nil
}

// create stores a link and publishes its creation. Other handlers that mint
// links go through here so every link is audited.
func (h *LinkHandler) create(ctx context.Context, target, entityID string) (*shortlink.Link, error) {
	link, err := h.links.Create(ctx, target, entityID)
	if err != nil {
		h.logger.Error("failed to create short link", zap.String("entity_id", entityID), zap.Error(err))

		return nil, err
	}

	meta := RequestMetaFromContext(ctx)
	event := &events.LinkCreated{
		Code:      string(link.Code),
		Target:    link.Target,
		EntityID:  link.EntityID,
		CreatedAt: link.CreatedAt,
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
	}

	if err := h.publishCreated(ctx, event); err != nil {
		h.logger.Error("failed to publish link created event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	return link, nil
}

// Redirect sends the client to the link target, or renders the expired-link
// page. Entity ids are never exposed here.
func (h *LinkHandler) Redirect(ctx context.Context, req *PublicCodeRequest) (*PageResponse, error) {
	if len(req.Code) > maxCodeLength {
		return renderPage(pages.LinkNotFound)
	}

	link, err := h.links.Resolve(ctx, shortlink.Code(req.Code))
	if err != nil {
		if errors.Is(err, shortlink.ErrNotFound) {
			return renderPage(pages.LinkNotFound)
		}

		h.logger.Error("failed to resolve short link", zap.String("code", req.Code), zap.Error(err))

		return renderPage(pages.LinkUnavailable)
	}

	meta := RequestMetaFromContext(ctx)
	event := &events.LinkResolved{
		Code:       req.Code,
		ResolvedAt: time.Now(),
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
		Referrer:   meta.Referrer,
	}

	if err := h.publishResolved(ctx, event); err != nil {
		h.logger.Error("failed to publish link resolved event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	return &PageResponse{Status: http.StatusFound, Location: link.Target, CacheControl: noStore}, nil
}

func (h *LinkHandler) DeleteShortLink(ctx context.Context, req *CodeRequest) (*struct{}, error) {
	if err := h.links.Remove(ctx, shortlink.Code(req.Code)); err != nil {
		h.logger.Error("failed to delete short link", zap.String("code", req.Code), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to delete short link")
	}

	return nil, nil
}

func (h *LinkHandler) Stats(ctx context.Context, req *StatsRequest) (*StatsResponse, error) {
	stats, err := h.links.Stats(ctx, req.Limit)
	if err != nil {
		h.logger.Error("failed to load link stats", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to load link stats")
	}

	resp := &StatsResponse{}
	resp.Body.TotalLinks = stats.TotalLinks
	resp.Body.Links = make([]LinkView, 0, len(stats.Links))

	for _, link := range stats.Links {
		resp.Body.Links = append(resp.Body.Links, h.view(link))
	}

	return resp, nil
}

func (h *LinkHandler) QRCode(ctx context.Context, req *CodeRequest) (*QRCodeResponse, error) {
	link, err := h.links.Resolve(ctx, shortlink.Code(req.Code))
	if err != nil {
		if errors.Is(err, shortlink.ErrNotFound) {
			return nil, huma.Error404NotFound("short link not found")
		}

		return nil, huma.Error500InternalServerError("failed to load short link")
	}

	png, err := qrcode.Encode(h.shortURL(link.Code), qrcode.Medium, qrCodeSize)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to render qr code")
	}

	return &QRCodeResponse{ContentType: "image/png", Body: png}, nil
}

func (h *LinkHandler) shortURL(code shortlink.Code) string {
	return h.baseURL + "/" + string(code)
}

func (h *LinkHandler) view(link *shortlink.Link) LinkView {
	return LinkView{
		Code:      string(link.Code),
		ShortURL:  h.shortURL(link.Code),
		Target:    link.Target,
		EntityID:  link.EntityID,
		CreatedAt: link.CreatedAt,
	}
}

func validTarget(target string) bool {
	if strings.HasPrefix(target, "/") {
		return !strings.HasPrefix(target, "//")
	}

	u, err := url.Parse(target)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
