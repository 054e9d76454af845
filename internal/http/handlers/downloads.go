package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/export"
)

func (a *App) DownloadResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	it, ok := a.Store.Get(id)
	if !ok {
		a.domainError(w, domain.ErrNotFound)
		return
	}
	if it.Status != domain.StatusDone || it.Result == nil || it.Result.Empty() {
		a.error(w, http.StatusNotFound, "no_result", "item has no result")
		return
	}
	writeAttachment(w, it.Result.MIME, export.DownloadFilename(it), it.Result.Data)
}

// DownloadArchive zips every done item. Packaging failures are reported on
// this request only.
func (a *App) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	archive, err := export.Archive(a.Store.Completed())
	if err != nil {
		if errors.Is(err, domain.ErrNoResults) {
			a.domainError(w, err)
			return
		}
		a.Logger.Error().Err(err).Msg("http: build archive")
		a.error(w, http.StatusInternalServerError, "archive_failed", "failed to build archive")
		return
	}
	writeAttachment(w, "application/zip", export.ArchiveName, archive)
}

func (a *App) Preview(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	img, ok := a.Previews.Lookup(handle)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "preview not found")
		return
	}
	w.Header().Set("Content-Type", img.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
