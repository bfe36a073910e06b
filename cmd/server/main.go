package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"multilingual-qa/internal/app"
	"multilingual-qa/internal/cache"
	"multilingual-qa/internal/catalog"
	"multilingual-qa/internal/document"
	"multilingual-qa/internal/engine"
	"multilingual-qa/internal/httputil"
	"multilingual-qa/internal/language"
	"multilingual-qa/internal/metrics"
	"multilingual-qa/internal/queue"
	"multilingual-qa/internal/store"
)

const truncationWarning = "input truncated to the model's input bound"

type answerRequest struct {
	Question  string `json:"question"`
	Context   string `json:"context"`
	Language  string `json:"language" validate:"required,oneof=English German"`
	MaxLength int    `json:"max_length" validate:"min=0,max=512"`
}

type answerResponse struct {
	Answer     string `json:"answer"`
	Details    string `json:"details"`
	Confidence string `json:"confidence,omitempty"`
	Language   string `json:"language"`
	WordCount  int    `json:"word_count"`
	Truncated  bool   `json:"truncated"`
	Outcome    string `json:"outcome"`
	Cached     bool   `json:"cached"`
}

type recordResponse struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Question    string     `json:"question"`
	Language    string     `json:"language"`
	MaxLength   int        `json:"max_length"`
	Answer      string     `json:"answer,omitempty"`
	Details     string     `json:"details,omitempty"`
	Confidence  string     `json:"confidence,omitempty"`
	WordCount   int        `json:"word_count"`
	Outcome     string     `json:"outcome,omitempty"`
	Warnings    []string   `json:"warnings,omitempty"`
	DurationMs  int64      `json:"duration_ms"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx)
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	deps.Log.Info("qa server listening", "addr", srv.Addr, "model", deps.Model.Name)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		deps.Log.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func newRouter(deps app.Deps) http.Handler {
	r := httputil.NewRouter(deps.Log)

	r.Post("/api/answer", answerHandler(deps))
	r.Post("/api/answer/document", documentHandler(deps))
	r.Post("/api/answer/async", asyncHandler(deps))
	r.Get("/api/answers/{id}", recordHandler(deps))
	r.Get("/api/examples", exampleHandler(deps))
	r.Get("/api/examples/categories", categoriesHandler())
	r.Get("/api/performance", performanceHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps))
	r.Handle("/metrics", metrics.Handler())
	return r
}

func answerHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, answer(r.Context(), deps, req))
	}
}

func documentHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxFileSize)

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}
		contentType, err := document.ContentType(header.Filename, header.Header.Get("Content-Type"))
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}

		req := answerRequest{
			Question: r.FormValue("question"),
			Language: r.FormValue("language"),
		}
		if v := r.FormValue("max_length"); v != "" {
			if req.MaxLength, err = strconv.Atoi(v); err != nil {
				httputil.Fail(deps.Log, w, "max_length must be an integer", err, http.StatusBadRequest)
				return
			}
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}
		text, err := document.ExtractText(contentType, content)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to extract text", err, http.StatusUnprocessableEntity)
			return
		}
		req.Context = text

		httputil.WriteJSON(w, http.StatusOK, answer(r.Context(), deps, req))
	}
}

// answer serves one request through the cache, the engine and the answer log.
func answer(ctx context.Context, deps app.Deps, req answerRequest) answerResponse {
	maxLength := req.MaxLength
	if maxLength <= 0 {
		maxLength = engine.DefaultMaxLength
	}
	key := cache.GenerateCacheKey(deps.Engine.ModelName(), req.Question, req.Context, req.Language, maxLength)
	if hit, err := deps.Cache.GetAnswer(ctx, key); err != nil {
		deps.Log.Warn("cache lookup failed", "err", err)
	} else if hit != nil {
		deps.Log.Info("cache hit", "language", req.Language)
		return answerResponse{
			Answer:     hit.Answer,
			Details:    hit.Details,
			Confidence: hit.Confidence,
			Language:   hit.Language,
			WordCount:  hit.WordCount,
			Truncated:  hit.Truncated,
			Outcome:    string(engine.OutcomeAnswered),
			Cached:     true,
		}
	}

	start := time.Now()
	res := deps.Engine.Answer(ctx, engine.Request{
		Question:  req.Question,
		Context:   req.Context,
		Language:  language.Language(req.Language),
		MaxLength: maxLength,
	})
	elapsed := time.Since(start)

	if res.Outcome == engine.OutcomeAnswered {
		ttl := time.Duration(deps.Config.CacheTTL) * time.Second
		if err := deps.Cache.SetAnswer(ctx, key, &cache.Entry{
			Answer:     res.Answer,
			Details:    res.Details,
			Confidence: string(res.Confidence),
			Language:   string(res.Language),
			WordCount:  res.WordCount,
			Truncated:  res.Truncated,
		}, ttl); err != nil {
			deps.Log.Warn("failed to cache answer", "err", err)
		}
	}

	if deps.Store != nil {
		if _, err := deps.Store.SaveAnswer(ctx, storeRequest(req, maxLength), completion(res, elapsed)); err != nil {
			deps.Log.Warn("failed to record answer", "err", err)
		}
	}

	return answerResponse{
		Answer:     res.Answer,
		Details:    res.Details,
		Confidence: string(res.Confidence),
		Language:   req.Language,
		WordCount:  res.WordCount,
		Truncated:  res.Truncated,
		Outcome:    string(res.Outcome),
	}
}

func asyncHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil || deps.Queue == nil {
			httputil.Fail(deps.Log, w, "async answering is disabled", nil, http.StatusServiceUnavailable)
			return
		}
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		maxLength := req.MaxLength
		if maxLength <= 0 {
			maxLength = engine.DefaultMaxLength
		}

		ctx := r.Context()
		rec, err := deps.Store.CreatePending(ctx, storeRequest(req, maxLength))
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to persist request", err, http.StatusInternalServerError)
			return
		}
		log := deps.Log.With("answer_id", rec.ID)

		task, err := queue.NewAnswerTask(queue.AnswerPayload{
			RecordID:  rec.ID,
			Question:  req.Question,
			Context:   req.Context,
			Language:  req.Language,
			MaxLength: maxLength,
		})
		if err == nil {
			err = queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond)
		}
		if err != nil {
			if cerr := deps.Store.Complete(ctx, rec.ID, store.Completion{
				Answer:  engine.ErrorPrefix + "failed to enqueue request",
				Outcome: string(engine.OutcomeFailed),
			}); cerr != nil {
				log.Error("failed to mark answer failed", "err", cerr)
			}
			httputil.Fail(log, w, "failed to enqueue request; please retry", err, http.StatusInternalServerError)
			return
		}

		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"id":     rec.ID.String(),
			"status": rec.Status,
		})
	}
}

func recordHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httputil.Fail(deps.Log, w, "answer store is disabled", nil, http.StatusServiceUnavailable)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid answer id", err, http.StatusBadRequest)
			return
		}
		rec, err := deps.Store.Get(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			httputil.Fail(deps.Log, w, "answer not found", err, http.StatusNotFound)
			return
		}
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load answer", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, recordResponse{
			ID:          rec.ID.String(),
			Status:      string(rec.Status),
			Question:    rec.Request.Question,
			Language:    rec.Request.Language,
			MaxLength:   rec.Request.MaxLength,
			Answer:      rec.Completion.Answer,
			Details:     rec.Completion.Details,
			Confidence:  rec.Completion.Confidence,
			WordCount:   rec.Completion.WordCount,
			Outcome:     rec.Completion.Outcome,
			Warnings:    rec.Completion.Warnings,
			DurationMs:  rec.Completion.DurationMs,
			CreatedAt:   rec.CreatedAt,
			CompletedAt: rec.CompletedAt,
		})
	}
}

func exampleHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cat, err := catalog.ParseCategory(r.URL.Query().Get("category"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid category", err, http.StatusBadRequest)
			return
		}
		lang := language.English
		if v := r.URL.Query().Get("language"); v != "" {
			if lang, err = language.Parse(v); err != nil {
				httputil.Fail(deps.Log, w, "invalid language", err, http.StatusBadRequest)
				return
			}
		}
		ex, err := deps.Catalog.GetExample(cat, lang)
		if err != nil {
			httputil.Fail(deps.Log, w, "example not found", err, http.StatusNotFound)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, ex)
	}
}

func categoriesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"categories": catalog.Categories()})
	}
}

func performanceHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, deps.Catalog.PerformanceTable())
	}
}

func storeRequest(req answerRequest, maxLength int) store.Request {
	return store.Request{
		Question:  req.Question,
		Context:   req.Context,
		Language:  req.Language,
		MaxLength: maxLength,
	}
}

func completion(res engine.Result, elapsed time.Duration) store.Completion {
	c := store.Completion{
		Answer:     res.Answer,
		Details:    res.Details,
		Confidence: string(res.Confidence),
		WordCount:  res.WordCount,
		Outcome:    string(res.Outcome),
		DurationMs: elapsed.Milliseconds(),
	}
	if res.Truncated {
		c.Warnings = append(c.Warnings, truncationWarning)
	}
	return c
}
