package model

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"multilingual-qa/internal/tokenizer"
)

const (
	questionMarker = "question: "
	contextMarker  = " context: "
)

// ExtractiveModel is an offline backend for development and smoke runs. It answers
// with the context sentence sharing the most words with the question. Beam settings
// are ignored; output is framed like a real decoder's (language code, eos).
type ExtractiveModel struct{}

func NewExtractiveModel() *ExtractiveModel {
	return &ExtractiveModel{}
}

func (m *ExtractiveModel) Generate(ctx context.Context, enc tokenizer.Encoding, params GenerateParams) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	question, passage, err := splitPrompt(enc.Text)
	if err != nil {
		return Output{}, err
	}
	best := bestSentence(question, passage)
	words := strings.Fields(best)
	if params.MaxLength > 0 && len(words) > params.MaxLength {
		words = words[:params.MaxLength]
	}
	parts := make([]string, 0, len(words)+2)
	if params.TargetLang != "" {
		parts = append(parts, params.TargetLang)
	}
	parts = append(parts, words...)
	parts = append(parts, "</s>")
	return Output{Text: strings.Join(parts, " ")}, nil
}

func splitPrompt(prompt string) (string, string, error) {
	idx := strings.Index(prompt, contextMarker)
	if idx < 0 {
		return "", "", errors.New("prompt has no context section")
	}
	question := strings.TrimPrefix(prompt[:idx], questionMarker)
	return question, prompt[idx+len(contextMarker):], nil
}

func bestSentence(question, passage string) string {
	qWords := wordSet(question)
	best, bestScore := "", -1
	for _, s := range splitSentences(passage) {
		score := 0
		for w := range wordSet(s) {
			if _, ok := qWords[w]; ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = s, score
		}
	}
	return best
}

// splitSentences cuts after '.', '!' or '?' when followed by whitespace or the end.
func splitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(f)) > 2 {
			set[f] = struct{}{}
		}
	}
	return set
}

// ExtractiveProvider loads the offline ExtractiveModel.
type ExtractiveProvider struct{}

func (ExtractiveProvider) Load(ctx context.Context) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Model: "extractive-baseline", Err: err}
	}
	return &Handle{
		Model:     NewExtractiveModel(),
		Tokenizer: tokenizer.New(),
		Device:    "cpu",
		Name:      "extractive-baseline",
	}, nil
}
