package language

import (
	"errors"
	"fmt"
)

// Language is the closed set of languages the QA model is tuned for.
type Language string

const (
	English Language = "English"
	German  Language = "German"
)

var ErrUnknownLanguage = errors.New("unknown language")

// IDLookup resolves a language tag (e.g. "en_XX") to the model's token id.
// Tokenizers satisfy it.
type IDLookup interface {
	LanguageID(tag string) (int, bool)
}

// Config is the generation configuration derived from a Language for a single request.
// It is a value: callers pass it along instead of setting it on shared state.
type Config struct {
	Language         Language
	SourceTag        string
	TargetTag        string
	ForcedBOSTokenID int
}

type tags struct {
	source string
	target string
}

var table = map[Language]tags{
	English: {source: "en_XX", target: "en_XX"},
	German:  {source: "de_DE", target: "de_DE"},
}

// All returns the supported languages in display order.
func All() []Language {
	return []Language{English, German}
}

// Parse maps a display name to a Language.
func Parse(s string) (Language, error) {
	l := Language(s)
	if _, ok := table[l]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, s)
	}
	return l, nil
}

// Resolve builds the request-local Config for l using the tokenizer's id table.
func Resolve(l Language, ids IDLookup) (Config, error) {
	t, ok := table[l]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownLanguage, string(l))
	}
	if ids == nil {
		return Config{}, errors.New("language id lookup is nil")
	}
	id, ok := ids.LanguageID(t.target)
	if !ok {
		return Config{}, fmt.Errorf("tokenizer has no id for language tag %s", t.target)
	}
	return Config{
		Language:         l,
		SourceTag:        t.source,
		TargetTag:        t.target,
		ForcedBOSTokenID: id,
	}, nil
}

func (l Language) String() string {
	return string(l)
}
