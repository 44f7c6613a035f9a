package httpapi

import (
	"fmt"
	"net/http"

	"github.com/scorecast/scorecast/internal/usecase"
)

type savePredictionRequest struct {
	FixtureID int64 `json:"fixtureId"`
	Home      *int  `json:"home"`
	Away      *int  `json:"away"`
}

type unlockPredictionRequest struct {
	UserID    string `json:"userId"`
	FixtureID int64  `json:"fixtureId"`
}

func (h *Handler) SavePrediction(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SavePrediction")
	defer span.End()

	userID, ok := userIDFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: missing user identity", usecase.ErrUnauthorized))
		return
	}

	var req savePredictionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	saved, err := h.predictionService.Save(ctx, usecase.SavePredictionInput{
		UserID:    userID,
		FixtureID: req.FixtureID,
		Home:      req.Home,
		Away:      req.Away,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "save prediction failed", "user_id", userID, "fixture_id", req.FixtureID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, predictionToDTO(saved, ""))
}

// UnlockPrediction reopens a locked prediction for editing. Omitting
// userId targets the caller's own prediction; unlocking someone else's
// needs an admin, which the service enforces.
func (h *Handler) UnlockPrediction(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UnlockPrediction")
	defer span.End()

	callerID, ok := userIDFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: missing user identity", usecase.ErrUnauthorized))
		return
	}

	var req unlockPredictionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.UserID == "" {
		req.UserID = callerID
	}
	if req.FixtureID <= 0 {
		writeError(ctx, w, fmt.Errorf("%w: fixtureId is required", usecase.ErrInvalidInput))
		return
	}

	if err := h.predictionService.Unlock(ctx, callerID, req.UserID, req.FixtureID); err != nil {
		h.logger.WarnContext(ctx, "unlock prediction failed", "caller_id", callerID, "user_id", req.UserID, "fixture_id", req.FixtureID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "unlocked"})
}

func (h *Handler) ListMyPredictions(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyPredictions")
	defer span.End()

	userID, ok := userIDFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: missing user identity", usecase.ErrUnauthorized))
		return
	}

	views, err := h.predictionService.ListForUser(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "list predictions failed", "user_id", userID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]predictionDTO, 0, len(views))
	for _, view := range views {
		items = append(items, predictionToDTO(view.Prediction, view.State))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}
