package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/greatwhitesecurity/opshub/internal/auth"
	"go.uber.org/zap"
)

const operatorSubject = "operator"

// SessionHandler logs operators in.
type SessionHandler struct {
	sessions *auth.Sessions
	logger   *zap.Logger
}

func NewSessionHandler(sessions *auth.Sessions, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

func (h *SessionHandler) CreateSession(ctx context.Context, req *CreateSessionRequest) (*CreateSessionResponse, error) {
	session, err := h.sessions.Login(operatorSubject, req.Body.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Warn("rejected operator login", zap.String("client_ip", RequestMetaFromContext(ctx).ClientIP))

			return nil, huma.Error401Unauthorized("invalid credentials")
		}

		return nil, huma.Error500InternalServerError("failed to create session")
	}

	resp := &CreateSessionResponse{}
	resp.Body.Token = session.Token
	resp.Body.ExpiresAt = session.ExpiresAt

	return resp, nil
}
