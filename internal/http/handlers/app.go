package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"studio/internal/batch"
	"studio/internal/domain"
	"studio/internal/domain/scenecfg"
	"studio/internal/infra"
	"studio/internal/session"
)

// Previews serves the source bytes behind a preview handle.
type Previews interface {
	Lookup(handle string) (domain.Image, bool)
}

type App struct {
	Config    *infra.Config
	Logger    zerolog.Logger
	Store     *session.Store
	Previews  Previews
	Scheduler *batch.Scheduler
	Scenes    *scenecfg.Catalog
}

func NewApp(cfg *infra.Config, logger zerolog.Logger, store *session.Store, previews Previews, scheduler *batch.Scheduler, scenes *scenecfg.Catalog) *App {
	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Previews:  previews,
		Scheduler: scheduler,
		Scenes:    scenes,
	}
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, codeStr, msg string) {
	var body errorBody
	body.Error.Code = codeStr
	body.Error.Message = msg
	a.json(w, code, body)
}

// domainError maps sentinel errors onto HTTP responses.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "item not found")
	case errors.Is(err, domain.ErrItemBusy):
		a.error(w, http.StatusConflict, "item_busy", "item is processing")
	case errors.Is(err, domain.ErrNotEditable):
		a.error(w, http.StatusConflict, "not_editable", "item can no longer be edited")
	case errors.Is(err, domain.ErrBatchInProgress):
		a.error(w, http.StatusConflict, "batch_in_progress", "a batch is already running")
	case errors.Is(err, domain.ErrStoreFull):
		a.error(w, http.StatusConflict, "store_full", "item limit reached")
	case errors.Is(err, domain.ErrUnknownScene):
		a.error(w, http.StatusBadRequest, "unknown_scene", err.Error())
	case errors.Is(err, domain.ErrNoResults):
		a.error(w, http.StatusNotFound, "no_results", "no completed images")
	case errors.Is(err, domain.ErrNotImage):
		a.error(w, http.StatusBadRequest, "not_image", "file is not an image")
	default:
		a.Logger.Error().Err(err).Msg("http: unhandled error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// decodeOptional decodes a JSON body when one is present.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
