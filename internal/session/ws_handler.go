package session

import (
	"net/http"

	"github.com/nsharathc/quizlive/internal/server"
	httperrors "github.com/nsharathc/quizlive/pkg/http/errors"
)

// HandleWebSocket upgrades the connection after resolving the caller's
// identity from the bearer token, so everything downstream sees only
// verified user ids and roles.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "missing token")
		return
	}

	claims, err := h.verifier.Validate(token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket token validation failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "invalid token")
		return
	}

	conn, err := server.WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.HandleConnection(conn, claims)
}
