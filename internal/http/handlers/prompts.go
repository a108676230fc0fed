package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain/jsoncfg"
	"github.com/XIAOke8698/GRAS-Manager/internal/providers/prompt"
)

type translateRequest struct {
	Text string `json:"text"`
}

// TranslatePreview runs the prompt gate without submitting anything.
func (a *App) TranslatePreview(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "text is required")
		return
	}
	if a.Gate == nil {
		a.json(w, http.StatusOK, prompt.Result{
			Text:     req.Text,
			Original: req.Text,
			Ratio:    prompt.CJKRatio(req.Text),
		})
		return
	}
	res, err := a.Gate.Normalize(r.Context(), req.Text)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, res)
}

// SubmissionOptions lists the accepted models and parameters per job kind.
func (a *App) SubmissionOptions(w http.ResponseWriter, _ *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"items": jsoncfg.AllOptions()})
}
