package handlers

import (
	"net/http"

	"studio/internal/batch"
)

type batchRequest struct {
	Scene       string   `json:"scene"`
	Concurrency int      `json:"concurrency"`
	ItemIDs     []string `json:"item_ids"`
}

type batchResponse struct {
	InProgress bool         `json:"in_progress"`
	Report     batch.Report `json:"report"`
}

func (a *App) StartBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeOptional(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Concurrency < 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "concurrency must be positive")
		return
	}
	run, err := a.Scheduler.StartBatch(batch.Request{
		ItemIDs:     req.ItemIDs,
		SceneID:     req.Scene,
		Concurrency: req.Concurrency,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}
	report := run.Report()
	a.json(w, http.StatusAccepted, batchResponse{InProgress: !report.Finished(), Report: report})
}

func (a *App) CurrentBatch(w http.ResponseWriter, r *http.Request) {
	run := a.Scheduler.Current()
	if run == nil {
		a.error(w, http.StatusNotFound, "not_found", "no batch has run yet")
		return
	}
	report := run.Report()
	a.json(w, http.StatusOK, batchResponse{InProgress: !report.Finished(), Report: report})
}
