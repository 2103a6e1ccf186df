package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/greatwhitesecurity/opshub/internal/availability"
	"github.com/greatwhitesecurity/opshub/internal/pages"
	"github.com/greatwhitesecurity/opshub/internal/records"
	"go.uber.org/zap"
)

// AvailabilityHandler records technician answers from /ty/ and /tn/ links and
// dispatches new availability checks.
type AvailabilityHandler struct {
	codes      *availability.Codes
	recorder   *availability.Recorder
	dispatcher *availability.Dispatcher
	logger     *zap.Logger
}

// NewAvailabilityHandler creates a new availability handler.
func NewAvailabilityHandler(
	codes *availability.Codes,
	recorder *availability.Recorder,
	dispatcher *availability.Dispatcher,
	logger *zap.Logger,
) *AvailabilityHandler {
	return &AvailabilityHandler{
		codes:      codes,
		recorder:   recorder,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (h *AvailabilityHandler) RespondYes(ctx context.Context, req *PublicCodeRequest) (*PageResponse, error) {
	return h.respond(ctx, availability.Code(req.Code), availability.Yes)
}

func (h *AvailabilityHandler) RespondNo(ctx context.Context, req *PublicCodeRequest) (*PageResponse, error) {
	return h.respond(ctx, availability.Code(req.Code), availability.No)
}

func (h *AvailabilityHandler) respond(ctx context.Context, code availability.Code, answer availability.Answer) (*PageResponse, error) {
	if len(code) > maxCodeLength {
		return renderPage(pages.InvalidLink)
	}

	pairing, err := h.codes.Lookup(ctx, code)
	if err != nil {
		if errors.Is(err, availability.ErrNotFound) {
			return renderPage(pages.InvalidLink)
		}

		h.logger.Error("failed to look up availability code", zap.String("code", string(code)), zap.Error(err))

		return renderPage(pages.Unavailable)
	}

	outcome, err := h.recorder.Record(ctx, pairing.EntityID, pairing.ResponderID, answer, availability.SourceLink)

	switch {
	case err == nil:
		return renderPage(pages.ResponseRecorded(outcome.Responder.Name, answer == availability.Yes))
	case errors.Is(err, records.ErrEntityNotFound), errors.Is(err, records.ErrResponderNotFound):
		h.logger.Warn("availability code refers to a missing record",
			zap.String("code", string(code)),
			zap.String("entity_id", pairing.EntityID),
			zap.String("responder_id", pairing.ResponderID),
			zap.Error(err),
		)

		return renderPage(pages.RecordNotFound)
	default:
		h.logger.Error("failed to record availability response",
			zap.String("code", string(code)),
			zap.String("entity_id", pairing.EntityID),
			zap.String("responder_id", pairing.ResponderID),
			zap.Error(err),
		)

		return renderPage(pages.Unavailable)
	}
}

func (h *AvailabilityHandler) DispatchChecks(ctx context.Context, req *DispatchChecksRequest) (*DispatchChecksResponse, error) {
	results, err := h.dispatcher.Dispatch(ctx, req.Body.EntityID, req.Body.ResponderIDs)
	if err != nil {
		if errors.Is(err, records.ErrEntityNotFound) {
			return nil, huma.Error404NotFound("entity not found")
		}

		h.logger.Error("failed to dispatch availability checks", zap.String("entity_id", req.Body.EntityID), zap.Error(err))

		return nil, upstreamError("failed to dispatch availability checks", err)
	}

	resp := &DispatchChecksResponse{}
	resp.Body.EntityID = req.Body.EntityID
	resp.Body.Results = make([]DispatchResultView, 0, len(results))

	for _, r := range results {
		view := DispatchResultView{ResponderID: r.ResponderID, Code: string(r.Code), Sent: r.Err == nil}
		if r.Err != nil {
			view.Error = r.Err.Error()
		}

		resp.Body.Results = append(resp.Body.Results, view)
	}

	return resp, nil
}
