package prompt

import (
	"context"
	"fmt"
	"strings"
)

// Translator renders a prompt in English.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
	Name() string
}

// TranslationError reports that the backing model could not produce a
// translation. Submissions must abort when they see it.
type TranslationError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *TranslationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("prompt: %s translation failed (%s): %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("prompt: %s translation failed (%s)", e.Provider, e.Reason)
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

const translateInstruction = "You are a professional translator. Translate the user's image or video generation prompt into natural English. " +
	"Keep quoted dialogue, lines to be spoken, on-screen text and proper names exactly as written in the original language. " +
	"Reply with the translation only, without explanations."

func translateUserMessage(text string) string {
	return "Translate the following prompt:\n" + text
}

// cleanTranslation strips wrapping a chat model sometimes adds around the answer.
func cleanTranslation(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```text")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}
