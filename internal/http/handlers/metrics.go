package handlers

import (
	"net/http"

	"github.com/XIAOke8698/GRAS-Manager/internal/metrics"
)

func (a *App) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics.Handler().ServeHTTP(w, r)
}
