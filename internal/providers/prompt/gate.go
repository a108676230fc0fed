package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"

	"github.com/XIAOke8698/GRAS-Manager/internal/infra"
)

// DefaultThreshold is the CJK share at which a prompt gets translated.
const DefaultThreshold = 0.5

type GateOptions struct {
	Translator Translator
	Threshold  float64
	// Target is a BCP 47 tag; only English targets trigger translation.
	Target string
	Logger *infra.Logger
}

// Gate decides whether a prompt needs translation before submission.
type Gate struct {
	translator Translator
	threshold  float64
	target     language.Tag
	logger     infra.Logger
}

// Result describes what the gate did with one prompt.
type Result struct {
	Text       string  `json:"text"`
	Original   string  `json:"original"`
	Ratio      float64 `json:"cjk_ratio"`
	Translated bool    `json:"translated"`
	Provider   string  `json:"provider,omitempty"`
}

func NewGate(opts GateOptions) (*Gate, error) {
	if opts.Translator == nil {
		return nil, errors.New("prompt: translator is required")
	}
	threshold := opts.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	target := language.English
	if raw := strings.TrimSpace(opts.Target); raw != "" {
		tag, err := language.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("prompt: parse target language %q: %w", raw, err)
		}
		target = tag
	}
	return &Gate{
		translator: opts.Translator,
		threshold:  threshold,
		target:     target,
		logger:     infra.LoggerOrNop(opts.Logger),
	}, nil
}

// CJKRatio returns the share of runes in the CJK Unified Ideographs block
// (U+4E00 to U+9FFF). Empty text has ratio 0.
func CJKRatio(text string) float64 {
	total := utf8.RuneCountInString(text)
	if total == 0 {
		return 0
	}
	cjk := 0
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FFF {
			cjk++
		}
	}
	return float64(cjk) / float64(total)
}

// NeedsTranslation reports whether text would be sent to the translator.
func (g *Gate) NeedsTranslation(text string) bool {
	return g.targetsEnglish() && CJKRatio(text) >= g.threshold
}

// Normalize returns text unchanged unless it is mostly CJK, in which case it
// is translated. A translation failure is returned as *TranslationError and
// must abort the submission.
func (g *Gate) Normalize(ctx context.Context, text string) (Result, error) {
	ratio := CJKRatio(text)
	res := Result{Text: text, Original: text, Ratio: ratio}
	if !g.targetsEnglish() || ratio < g.threshold {
		return res, nil
	}
	translated, err := g.translator.Translate(ctx, text)
	if err != nil {
		var terr *TranslationError
		if !errors.As(err, &terr) {
			err = &TranslationError{Provider: g.translator.Name(), Reason: "translate", Err: err}
		}
		g.logger.Warn().Err(err).Float64("cjk_ratio", ratio).Msg("prompt: translation failed")
		return Result{}, err
	}
	g.logger.Debug().Str("provider", g.translator.Name()).Float64("cjk_ratio", ratio).Msg("prompt: translated")
	res.Text = translated
	res.Translated = true
	res.Provider = g.translator.Name()
	return res, nil
}

func (g *Gate) targetsEnglish() bool {
	base, _ := g.target.Base()
	en, _ := language.English.Base()
	return base == en
}
