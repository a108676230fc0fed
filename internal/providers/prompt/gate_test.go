package prompt

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

type countingTranslator struct {
	calls  int
	output string
	err    error
}

func (c *countingTranslator) Translate(_ context.Context, _ string) (string, error) {
	c.calls++
	return c.output, c.err
}

func (c *countingTranslator) Name() string { return "fake" }

func TestCJKRatio(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"a cat on the moon", 0},
		{"月亮上的猫", 1},
		{"猫猫ab", 0.5},
		// Hiragana sits outside the unified ideograph block.
		{"ねこ", 0},
	}
	for _, tc := range cases {
		if got := CJKRatio(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("CJKRatio(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func newTestGate(t *testing.T, opts GateOptions) *Gate {
	t.Helper()
	g, err := NewGate(opts)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	return g
}

func TestGateSkipsLatinPrompt(t *testing.T) {
	tr := &countingTranslator{output: "unused"}
	g := newTestGate(t, GateOptions{Translator: tr})

	res, err := g.Normalize(context.Background(), "a cat on the moon")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if tr.calls != 0 {
		t.Fatalf("expected no translator call, got %d", tr.calls)
	}
	if res.Translated || res.Text != "a cat on the moon" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestGateTranslatesMostlyCJKPrompt(t *testing.T) {
	tr := &countingTranslator{output: "a cat on the moon"}
	g := newTestGate(t, GateOptions{Translator: tr})

	// 4 of 5 runes are ideographs.
	res, err := g.Normalize(context.Background(), "月亮上猫!")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if tr.calls != 1 {
		t.Fatalf("expected one translator call, got %d", tr.calls)
	}
	if !res.Translated || res.Text != "a cat on the moon" || res.Original != "月亮上猫!" {
		t.Fatalf("unexpected result %+v", res)
	}
	if math.Abs(res.Ratio-0.8) > 1e-9 {
		t.Fatalf("ratio = %v, want 0.8", res.Ratio)
	}
	if res.Provider != "fake" {
		t.Fatalf("provider = %q", res.Provider)
	}
}

func TestGateThresholdIsInclusive(t *testing.T) {
	g := newTestGate(t, GateOptions{Translator: &countingTranslator{output: "cat ab"}, Threshold: 0.5})

	if !g.NeedsTranslation("猫猫ab") {
		t.Fatal("ratio equal to threshold should translate")
	}
	if g.NeedsTranslation("猫abc") {
		t.Fatal("ratio below threshold should not translate")
	}
}

func TestGateFailureIsTranslationError(t *testing.T) {
	g := newTestGate(t, GateOptions{Translator: &countingTranslator{err: errors.New("upstream down")}})

	_, err := g.Normalize(context.Background(), "月亮上的猫")
	var terr *TranslationError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TranslationError, got %v", err)
	}
	if terr.Provider != "fake" {
		t.Fatalf("provider = %q", terr.Provider)
	}
	if !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("error %q lost the cause", err)
	}
}

func TestGateNonEnglishTargetNeverTranslates(t *testing.T) {
	tr := &countingTranslator{output: "x"}
	g := newTestGate(t, GateOptions{Translator: tr, Target: "zh-Hans"})

	res, err := g.Normalize(context.Background(), "月亮上的猫")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if tr.calls != 0 || res.Translated {
		t.Fatalf("expected passthrough, calls=%d result=%+v", tr.calls, res)
	}
}

func TestNewGateValidation(t *testing.T) {
	if _, err := NewGate(GateOptions{}); err == nil {
		t.Fatal("expected error without translator")
	}
	if _, err := NewGate(GateOptions{Translator: &countingTranslator{}, Target: "!!"}); err == nil {
		t.Fatal("expected error for malformed target tag")
	}

	g := newTestGate(t, GateOptions{Translator: &countingTranslator{}, Target: "en-US", Threshold: 7})
	if g.threshold != DefaultThreshold {
		t.Fatalf("threshold = %v, want default %v", g.threshold, DefaultThreshold)
	}
	if !g.targetsEnglish() {
		t.Fatal("en-US should count as English")
	}
}

func TestCleanTranslation(t *testing.T) {
	for in, want := range map[string]string{
		"  hello \n":            "hello",
		"```text\nhello\n```": "hello",
		"```\nhello\n```":     "hello",
	} {
		if got := cleanTranslation(in); got != want {
			t.Errorf("cleanTranslation(%q) = %q, want %q", in, got, want)
		}
	}
}
