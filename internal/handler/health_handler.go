package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// healthCheckTimeout はDB疎通確認のタイムアウト。
const healthCheckTimeout = 2 * time.Second

// HealthChecker はDBの疎通確認を行う。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	mode    string
	version string
	checker HealthChecker
}

// NewHealthHandler はHealthHandlerを生成する。checkerがnilの場合はDB疎通確認を行わない。
func NewHealthHandler(mode, version string, checker HealthChecker) *HealthHandler {
	return &HealthHandler{mode: mode, version: version, checker: checker}
}

type healthResponse struct {
	Mode    string `json:"mode"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// Check は動作モード、バージョン、状態を返す。DBに接続できない場合は503を返す。
// GET /api/v1/health_check
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Mode: h.mode, Version: h.version, Status: "OK"}

	if h.checker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := h.checker.Ping(ctx); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			resp.Status = "UNAVAILABLE"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
