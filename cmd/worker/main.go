package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"multilingual-qa/internal/app"
	"multilingual-qa/internal/engine"
	"multilingual-qa/internal/httputil"
	"multilingual-qa/internal/language"
	"multilingual-qa/internal/queue"
	"multilingual-qa/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.BuildWorker(ctx)
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()
	deps.Log.Info("answer worker starting", "model", deps.Model.Name)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeAnswer, func(ctx context.Context, task queue.Task) error {
			payload, err := queue.DecodeAnswer(task)
			if err != nil {
				return fmt.Errorf("decode answer task: %w", err)
			}
			return handleAnswer(ctx, deps, payload)
		})
	})

	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps, "worker")
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("answer worker stopped", "err", err)
	}
}

// handleAnswer runs one queued request and completes its record. The engine
// never fails the task itself; only a store error triggers redelivery.
func handleAnswer(ctx context.Context, deps app.Deps, p queue.AnswerPayload) error {
	log := deps.Log.With("answer_id", p.RecordID)

	start := time.Now()
	res := deps.Engine.Answer(ctx, engine.Request{
		Question:  p.Question,
		Context:   p.Context,
		Language:  language.Language(p.Language),
		MaxLength: p.MaxLength,
	})
	c := store.Completion{
		Answer:     res.Answer,
		Details:    res.Details,
		Confidence: string(res.Confidence),
		WordCount:  res.WordCount,
		Outcome:    string(res.Outcome),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if res.Truncated {
		c.Warnings = append(c.Warnings, "input truncated to the model's input bound")
	}

	if err := deps.Store.Complete(ctx, p.RecordID, c); err != nil {
		return fmt.Errorf("complete answer %s: %w", p.RecordID, err)
	}
	log.Info("answer completed", "outcome", res.Outcome, "duration_ms", c.DurationMs)
	return nil
}
