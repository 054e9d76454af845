package handlers

import (
	"net/http"

	"studio/internal/middleware"
)

type sceneResponse struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	LabelEn string `json:"label_en"`
	LabelZh string `json:"label_zh"`
	Prompt  string `json:"prompt"`
}

func (a *App) ListScenes(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	scenes := a.Scenes.All()
	out := make([]sceneResponse, 0, len(scenes))
	for _, sc := range scenes {
		out = append(out, sceneResponse{
			ID:      string(sc.ID),
			Label:   sc.Label(locale),
			LabelEn: sc.LabelEn,
			LabelZh: sc.LabelZh,
			Prompt:  sc.Prompt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"locale": locale, "scenes": out})
}
