package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/media"
)

const multipartMemory = 32 << 20

type itemResponse struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	SceneUsed   string    `json:"scene_used,omitempty"`
	Description string    `json:"description"`
	Size        int64     `json:"size"`
	PreviewURL  string    `json:"preview_url"`
	ResultURL   string    `json:"result_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toItemResponse(it domain.Item) itemResponse {
	resp := itemResponse{
		ID:          it.ID,
		Filename:    it.Filename,
		Status:      string(it.Status),
		Error:       it.Error,
		SceneUsed:   string(it.SceneUsed),
		Description: it.Description,
		Size:        it.Source.Size(),
		PreviewURL:  "/v1/previews/" + it.PreviewHandle,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
	if it.Status == domain.StatusDone && it.Result != nil {
		resp.ResultURL = "/v1/items/" + it.ID + "/result"
	}
	return resp
}

type skippedFile struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

func (a *App) ListItems(w http.ResponseWriter, r *http.Request) {
	items := a.Store.List()
	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toItemResponse(it))
	}
	a.json(w, http.StatusOK, map[string]any{
		"items":             out,
		"batch_in_progress": a.Scheduler.InProgress(),
		"has_completed":     a.Store.HasCompleted(),
		"max_items":         a.Store.MaxItems(),
		"remaining":         a.Store.Remaining(),
	})
}

// UploadItems accepts multipart "files". Files beyond the remaining
// capacity, non-images and oversized files are skipped, not rejected.
func (a *App) UploadItems(w http.ResponseWriter, r *http.Request) {
	maxFile := a.Config.MaxUploadSize
	r.Body = http.MaxBytesReader(w, r.Body, maxFile*int64(a.Store.MaxItems())+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "files required")
		return
	}

	added := make([]itemResponse, 0, len(files))
	skipped := make([]skippedFile, 0)
	for _, fh := range files {
		if a.Store.Remaining() == 0 {
			skipped = append(skipped, skippedFile{Filename: fh.Filename, Reason: "limit_reached"})
			continue
		}
		if fh.Size > maxFile {
			skipped = append(skipped, skippedFile{
				Filename: fh.Filename,
				Reason:   fmt.Sprintf("larger than %s", humanize.Bytes(uint64(maxFile))),
			})
			continue
		}
		img, err := readImage(fh)
		if err != nil {
			skipped = append(skipped, skippedFile{Filename: fh.Filename, Reason: "not_image"})
			continue
		}
		id, err := a.Store.Add(fh.Filename, img)
		if err != nil {
			reason := "rejected"
			if errors.Is(err, domain.ErrStoreFull) {
				reason = "limit_reached"
			}
			skipped = append(skipped, skippedFile{Filename: fh.Filename, Reason: reason})
			continue
		}
		if it, ok := a.Store.Get(id); ok {
			added = append(added, toItemResponse(it))
		}
	}

	a.Logger.Info().
		Int("added", len(added)).
		Int("skipped", len(skipped)).
		Msg("http: files uploaded")

	a.json(w, http.StatusCreated, map[string]any{"items": added, "skipped": skipped})
}

func readImage(fh *multipart.FileHeader) (domain.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.Image{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return domain.Image{}, err
	}
	declared := fh.Header.Get("Content-Type")
	if len(data) == 0 || !media.IsImage(data, declared) {
		return domain.Image{}, domain.ErrNotImage
	}
	return domain.Image{MIME: media.DetectMIME(data, declared), Data: data}, nil
}

func (a *App) ClearItems(w http.ResponseWriter, r *http.Request) {
	var n int
	if err := a.Scheduler.WhileIdle(func() { n = a.Store.Clear() }); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]int{"removed": n})
}

func (a *App) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !a.Store.Remove(id) {
		a.domainError(w, domain.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type descriptionRequest struct {
	Description string `json:"description"`
}

func (a *App) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req descriptionRequest
	if err := decodeOptional(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Store.UpdateDescription(id, req.Description); err != nil {
		a.domainError(w, err)
		return
	}
	it, _ := a.Store.Get(id)
	a.json(w, http.StatusOK, toItemResponse(it))
}

type retryRequest struct {
	Scene string `json:"scene"`
}

func (a *App) RetryItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req retryRequest
	if err := decodeOptional(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Scheduler.StartRetry(id, req.Scene); err != nil {
		a.domainError(w, err)
		return
	}
	it, ok := a.Store.Get(id)
	if !ok {
		a.domainError(w, domain.ErrNotFound)
		return
	}
	a.json(w, http.StatusAccepted, toItemResponse(it))
}
