package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"synthetic": a.Config != nil && a.Config.SyntheticOptimizer(),
	})
}
