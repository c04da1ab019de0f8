package leaderboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	httperrors "github.com/nsharathc/quizlive/pkg/http/errors"
)

// HTTPHandler exposes REST endpoints for cumulative quiz standings.
type HTTPHandler struct {
	archive *Archive
	logger  zerolog.Logger
}

// NewHTTPHandler constructs a standings HTTP handler.
func NewHTTPHandler(archive *Archive, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		archive: archive,
		logger:  logger.With().Str("component", "standings_http").Logger(),
	}
}

// HandleGet responds with the cumulative standings for a quiz, or the
// all-time fold across every quiz.
// Routes: GET /v1/standings/{quiz_id}?limit=10
//         GET /v1/standings/all_time?limit=10
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "method not allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/standings/")
	path = strings.TrimSuffix(path, "/")

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var (
		standings []Standing
		scope     string
		err       error
	)
	if path == "all_time" {
		scope = "all_time"
		standings, err = h.archive.AllTimeTop(r.Context(), limit)
	} else {
		quizID, parseErr := uuid.Parse(path)
		if parseErr != nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidRequest, "quiz_id must be a uuid or all_time", "quiz_id")
			return
		}
		scope = quizID.String()
		standings, err = h.archive.TopStandings(r.Context(), quizID, limit)
	}
	if err != nil {
		h.logger.Warn().Err(err).Str("scope", scope).Msg("standings fetch failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeStandingsFetchFailed, "could not fetch standings")
		return
	}

	resp := map[string]interface{}{
		"scope":       scope,
		"top":         standings,
		"retrievedAt": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
