package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/tarotlink/ai/matching"
)

// MatchesResponse is the JSON envelope for GET /api/v1/matches.
type MatchesResponse struct {
	Matches []matching.Match `json:"matches"`
}

// errorResponse is the JSON envelope for failed requests.
type errorResponse struct {
	Error string `json:"error"`
}

// GetMatches handles GET /api/v1/matches?userId=<uuid>[&mode=tags|semantic].
//
// An empty match list is a successful response; only dependency outages
// surface as errors, with 424 signalling the caller may retry.
func (s *APIV1Service) GetMatches(c echo.Context) error {
	userID := c.QueryParam("userId")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, &errorResponse{Error: "User ID required"})
	}
	if _, err := uuid.Parse(userID); err != nil {
		return c.JSON(http.StatusBadRequest, &errorResponse{Error: "invalid user ID"})
	}

	mode := matching.ModeTags
	if c.QueryParam("mode") == string(matching.ModeSemantic) {
		mode = matching.ModeSemantic
	}

	start := time.Now()
	matches, err := s.matchService.FindMatches(c.Request().Context(), userID, mode)
	if err != nil {
		outcome := "error"
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, matching.ErrNoRequester):
			outcome = "bad_request"
			status = http.StatusBadRequest
		case errors.Is(err, matching.ErrDependency):
			outcome = "dependency_error"
			status = http.StatusFailedDependency
		}
		s.exporter.ObserveMatchRequest(string(mode), outcome, 0, time.Since(start))
		slog.Error("match request failed",
			"request_id", c.Get("request_id"),
			"user_id", userID,
			"error", err,
		)
		return c.JSON(status, &errorResponse{Error: "failed to find matches"})
	}

	s.exporter.ObserveMatchRequest(string(mode), "ok", len(matches), time.Since(start))
	return c.JSON(http.StatusOK, &MatchesResponse{Matches: matches})
}
