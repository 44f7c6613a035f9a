package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	// Cached passthrough to football-data.org for read-only lookups the
	// API does not model itself (standings, scorers, team pages).
	mux.HandleFunc("GET /football-api/{path...}", handler.GatewayProxy)

	mux.HandleFunc("GET /v1/gameweek/current", handler.GetCurrentGameweek)
	mux.HandleFunc("GET /v1/fixtures", handler.ListFixtures)
	mux.HandleFunc("GET /v1/leaderboard", handler.GetLeaderboard)
	mux.HandleFunc("GET /v1/leaderboard/weekly", handler.GetWeeklyBoard)
	mux.HandleFunc("GET /v1/users/{userID}/stats", handler.GetUserStats)
}

func registerUserRoutes(mux *http.ServeMux, handler *Handler) {
	mux.Handle("GET /v1/predictions/me", RequireUser(http.HandlerFunc(handler.ListMyPredictions)))
	mux.Handle("PUT /v1/predictions", RequireUser(http.HandlerFunc(handler.SavePrediction)))
	mux.Handle("POST /v1/predictions/unlock", RequireUser(http.HandlerFunc(handler.UnlockPrediction)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/refresh", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRefreshJob)))
	mux.Handle("POST /v1/internal/jobs/resync", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunResyncJob)))
}
