package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestGeminiTranslatorTranslate(t *testing.T) {
	var captured geminiRequest
	var endpoint, key string
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		endpoint = r.URL.String()
		key = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		return jsonResponse(http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"a cat "},{"text":"on the moon"}]}}]}`), nil
	})}
	tr, err := NewGeminiTranslator(GeminiOptions{APIKey: "g-key", Model: "gemini-2.0-flash", HTTPClient: client})
	if err != nil {
		t.Fatalf("new translator: %v", err)
	}

	out, err := tr.Translate(context.Background(), "月亮上的猫")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out != "a cat on the moon" {
		t.Fatalf("unexpected output %q", out)
	}
	if endpoint != "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent" {
		t.Fatalf("unexpected endpoint %q", endpoint)
	}
	if key != "g-key" {
		t.Fatalf("unexpected api key header %q", key)
	}
	if captured.SystemInstruction == nil || len(captured.Contents) != 1 {
		t.Fatalf("unexpected request %+v", captured)
	}
}

func TestGeminiTranslatorEmptyCandidates(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"candidates":[]}`), nil
	})}
	tr, err := NewGeminiTranslator(GeminiOptions{APIKey: "g-key", HTTPClient: client})
	if err != nil {
		t.Fatalf("new translator: %v", err)
	}
	_, err = tr.Translate(context.Background(), "猫")
	var terr *TranslationError
	if !errors.As(err, &terr) || terr.Reason != "empty_response" {
		t.Fatalf("expected empty_response TranslationError, got %v", err)
	}
	if terr.Provider != "gemini" {
		t.Fatalf("unexpected provider %q", terr.Provider)
	}
}

func TestGeminiTranslatorHTTPError(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusForbidden, `{"error":{}}`), nil
	})}
	tr, _ := NewGeminiTranslator(GeminiOptions{APIKey: "g-key", HTTPClient: client})
	_, err := tr.Translate(context.Background(), "猫")
	var terr *TranslationError
	if !errors.As(err, &terr) || terr.Reason != "http_403" {
		t.Fatalf("expected http_403, got %v", err)
	}
}
