package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/scorecast/scorecast/external/footballdata"
	"github.com/scorecast/scorecast/internal/usecase"
)

// GatewayProxy forwards a read-only request to football-data.org and
// mirrors the upstream status and body. The routing prefix is stripped
// before the path becomes part of the cache key, and the auth token is
// attached server-side so it never reaches the browser.
func (h *Handler) GatewayProxy(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GatewayProxy")
	defer span.End()

	if h.gateway == nil {
		writeError(ctx, w, fmt.Errorf("%w: upstream gateway is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	path := strings.TrimSpace(r.PathValue("path"))
	if path == "" {
		writeError(ctx, w, fmt.Errorf("%w: upstream path is required", usecase.ErrInvalidInput))
		return
	}

	resp, err := h.gateway.Do(ctx, path, r.URL.Query())
	if err != nil {
		h.logger.WarnContext(ctx, "gateway request failed", "path", path, "error", err)
		writeError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", gatewayContentType(resp))
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// gatewayContentType mirrors the upstream content type; when the
// upstream omits one, the body decides between JSON and plain text.
func gatewayContentType(resp footballdata.Response) string {
	if ct := strings.TrimSpace(resp.ContentType); ct != "" {
		return ct
	}
	if sonic.Valid(resp.Body) {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}
