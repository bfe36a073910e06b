// Package engine turns a question, a passage and a language into a generated
// answer plus a heuristic confidence label.
//
// Answer never returns an error to its caller: empty input is rejected with a
// warning and every failure after that is folded into an error-prefixed answer
// with empty details.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"multilingual-qa/internal/confidence"
	"multilingual-qa/internal/language"
	"multilingual-qa/internal/metrics"
	"multilingual-qa/internal/model"
	"multilingual-qa/internal/tokenizer"
)

const (
	DefaultMaxLength = 64
	NumBeams         = 4
	MaxInputUnits    = 256

	DefaultTimeout = 30 * time.Second

	WarningMessage = "⚠️ Please provide both a question and context!"
	ErrorPrefix    = "❌ Error: "
)

var (
	ErrEmptyInput        = errors.New("question and context are required")
	ErrGenerationTimeout = errors.New("generation timed out")
)

// Outcome classifies how a request ended.
type Outcome string

const (
	OutcomeAnswered Outcome = "answered"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
	OutcomeTimedOut Outcome = "timed_out"
)

type Request struct {
	Question  string
	Context   string
	Language  language.Language
	MaxLength int
}

type Result struct {
	Answer     string
	Details    string
	Confidence confidence.Level
	Language   language.Language
	WordCount  int
	Truncated  bool
	Outcome    Outcome
	// Err is set for rejected, failed and timed-out outcomes.
	Err error
}

type Options struct {
	// Timeout bounds a single generation call; zero means DefaultTimeout.
	Timeout time.Duration
	// Concurrency is the number of generation calls allowed on the model at once.
	Concurrency int64
	Metrics     metrics.Metrics
}

type Engine struct {
	handle  *model.Handle
	log     *slog.Logger
	metrics metrics.Metrics
	sem     *semaphore.Weighted
	timeout time.Duration
}

func New(handle *model.Handle, log *slog.Logger, opts Options) (*Engine, error) {
	if handle == nil || handle.Model == nil || handle.Tokenizer == nil {
		return nil, errors.New("engine requires a loaded model and tokenizer")
	}
	if log == nil {
		log = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}
	return &Engine{
		handle:  handle,
		log:     log,
		metrics: opts.Metrics,
		sem:     semaphore.NewWeighted(opts.Concurrency),
		timeout: opts.Timeout,
	}, nil
}

// ModelName reports the name of the loaded model.
func (e *Engine) ModelName() string {
	return e.handle.Name
}

// AnswerQuestion is the string surface used by UI and CLI callers. An empty
// details string means answer carries a warning or error message.
func (e *Engine) AnswerQuestion(ctx context.Context, question, passage, lang string, maxLength int) (string, string) {
	res := e.Answer(ctx, Request{
		Question:  question,
		Context:   passage,
		Language:  language.Language(lang),
		MaxLength: maxLength,
	})
	return res.Answer, res.Details
}

func (e *Engine) Answer(ctx context.Context, req Request) (res Result) {
	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.Context) == "" {
		e.metrics.IncAnswers(languageLabel(req.Language), string(OutcomeRejected))
		return Result{Answer: WarningMessage, Language: req.Language, Outcome: OutcomeRejected, Err: ErrEmptyInput}
	}
	if req.MaxLength <= 0 {
		req.MaxLength = DefaultMaxLength
	}

	defer func() {
		if r := recover(); r != nil {
			res = e.failure(req, fmt.Errorf("panic during generation: %v", r))
		}
	}()

	res, err := e.generate(ctx, req)
	if err != nil {
		return e.failure(req, err)
	}
	label := languageLabel(req.Language)
	e.metrics.IncAnswers(label, string(OutcomeAnswered))
	e.metrics.IncConfidence(label, string(res.Confidence))
	return res
}

func (e *Engine) generate(ctx context.Context, req Request) (Result, error) {
	cfg, err := language.Resolve(req.Language, e.handle.Tokenizer)
	if err != nil {
		return Result{}, fmt.Errorf("configure language: %w", err)
	}

	enc := e.handle.Tokenizer.Encode(BuildPrompt(req.Question, req.Context), MaxInputUnits)
	if enc.Truncated {
		e.log.Warn("prompt truncated to input bound",
			"language", cfg.Language,
			"units", enc.TotalUnits,
			"kept", enc.Units,
		)
		e.metrics.IncTruncations(languageLabel(cfg.Language))
	}

	params := model.GenerateParams{
		MaxLength:        req.MaxLength,
		NumBeams:         NumBeams,
		EarlyStopping:    true,
		ForcedBOSTokenID: cfg.ForcedBOSTokenID,
		SourceLang:       cfg.SourceTag,
		TargetLang:       cfg.TargetTag,
	}
	start := time.Now()
	out, err := e.run(ctx, enc, params)
	e.metrics.ObserveGeneration(languageLabel(cfg.Language), time.Since(start).Seconds())
	if err != nil {
		return Result{}, err
	}

	answer := e.handle.Tokenizer.Decode(out.Text)
	level := confidence.Score(answer, req.Context)
	words := len(strings.Fields(answer))
	e.log.Debug("answer generated",
		"language", cfg.Language,
		"words", words,
		"confidence", level,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Result{
		Answer:     answer,
		Details:    FormatDetails(cfg.Language, words, level, e.handle.Name, enc),
		Confidence: level,
		Language:   cfg.Language,
		WordCount:  words,
		Truncated:  enc.Truncated,
		Outcome:    OutcomeAnswered,
	}, nil
}

// run calls the model in a supervised goroutine so the deadline holds even when
// the model ignores ctx. The semaphore is released only when the model returns.
func (e *Engine) run(ctx context.Context, enc tokenizer.Encoding, params model.GenerateParams) (model.Output, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return model.Output{}, e.contextErr(ctx, err)
	}

	type result struct {
		out model.Output
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer e.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("model panic: %v", r)}
			}
		}()
		out, err := e.handle.Model.Generate(ctx, enc, params)
		done <- result{out: out, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() != nil {
			return model.Output{}, e.contextErr(ctx, r.err)
		}
		return r.out, r.err
	case <-ctx.Done():
		return model.Output{}, e.contextErr(ctx, ctx.Err())
	}
}

func (e *Engine) contextErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrGenerationTimeout, e.timeout)
	}
	return fmt.Errorf("generation cancelled: %w", err)
}

func (e *Engine) failure(req Request, err error) Result {
	outcome := OutcomeFailed
	if errors.Is(err, ErrGenerationTimeout) {
		outcome = OutcomeTimedOut
	}
	e.log.Error("answer generation failed", "language", req.Language, "outcome", outcome, "err", err)
	e.metrics.IncAnswers(languageLabel(req.Language), string(outcome))
	return Result{
		Answer:   ErrorPrefix + err.Error(),
		Language: req.Language,
		Outcome:  outcome,
		Err:      err,
	}
}

// BuildPrompt renders the instruction template the model was fine-tuned on.
func BuildPrompt(question, passage string) string {
	return fmt.Sprintf("question: %s context: %s", question, passage)
}

// FormatDetails renders the human-readable response block shown next to an answer.
func FormatDetails(lang language.Language, words int, level confidence.Level, modelName string, enc tokenizer.Encoding) string {
	var b strings.Builder
	b.WriteString("### 📊 Response Details\n")
	fmt.Fprintf(&b, "- **Language**: %s\n", lang)
	fmt.Fprintf(&b, "- **Answer Length**: %d words\n", words)
	fmt.Fprintf(&b, "- **Confidence**: %s\n", level)
	fmt.Fprintf(&b, "- **Model**: %s\n", modelName)
	if enc.Truncated {
		fmt.Fprintf(&b, "- **Note**: input truncated to %d of %d units\n", enc.Units, enc.TotalUnits)
	}
	return b.String()
}

// languageLabel keeps metric label cardinality bounded.
func languageLabel(l language.Language) string {
	if _, err := language.Parse(string(l)); err != nil {
		return "unknown"
	}
	return string(l)
}
