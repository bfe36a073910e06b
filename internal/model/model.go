package model

import (
	"context"
	"fmt"

	"multilingual-qa/internal/tokenizer"
)

// Tokenizer is the part of the tokenizer the answer engine depends on.
type Tokenizer interface {
	LanguageID(tag string) (int, bool)
	Encode(text string, maxUnits int) tokenizer.Encoding
	Decode(text string) string
}

// GenerateParams carries every generation setting for one call.
// Language tags and the forced id travel here rather than on shared model state.
type GenerateParams struct {
	MaxLength        int
	NumBeams         int
	EarlyStopping    bool
	ForcedBOSTokenID int
	SourceLang       string
	TargetLang       string
}

// Output is raw generated text; it may still contain special tokens.
type Output struct {
	Text string
}

// Model runs inference-only generation. Implementations are not required to be
// safe for concurrent use; callers serialize access.
type Model interface {
	Generate(ctx context.Context, enc tokenizer.Encoding, params GenerateParams) (Output, error)
}

// Handle is the loaded model/tokenizer pair shared for the process lifetime.
type Handle struct {
	Model     Model
	Tokenizer Tokenizer
	Device    string
	Name      string
}

// Provider loads a Handle. It is called once at startup.
type Provider interface {
	Load(ctx context.Context) (*Handle, error)
}

// LoadError reports that the model or tokenizer could not be made ready.
type LoadError struct {
	Model string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Model, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
