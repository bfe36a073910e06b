package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"multilingual-qa/internal/app"
	"multilingual-qa/internal/catalog"
	"multilingual-qa/internal/engine"
	"multilingual-qa/internal/language"
)

type caseResult struct {
	Case   catalog.SmokeCase
	Answer string
	Passed bool
}

type report struct {
	Results []caseResult
	// PassRate is the fraction of passing cases per language, for languages with cases.
	PassRate map[language.Language]float64
}

func main() {
	minPassRate := flag.Float64("min-pass-rate", 0, "exit non-zero when any language passes fewer than this fraction of cases")
	maxLength := flag.Int("max-length", engine.DefaultMaxLength, "maximum answer length")
	flag.Parse()

	ctx := context.Background()
	deps, err := app.BuildCore(ctx)
	if err != nil {
		slog.Default().Error("failed to load model", "err", err)
		os.Exit(1)
	}

	rep := run(ctx, deps.Engine, deps.Catalog.Smoke, *maxLength)
	printReport(os.Stdout, rep)

	for lang, rate := range rep.PassRate {
		if rate < *minPassRate {
			deps.Log.Error("pass rate below threshold", "language", lang, "rate", rate, "min", *minPassRate)
			os.Exit(1)
		}
	}
}

// run answers every case and scores it by case-insensitive substring match.
func run(ctx context.Context, eng *engine.Engine, cases []catalog.SmokeCase, maxLength int) report {
	rep := report{PassRate: make(map[language.Language]float64)}
	total := make(map[language.Language]int)
	passed := make(map[language.Language]int)

	for _, c := range cases {
		answer, _ := eng.AnswerQuestion(ctx, c.Question, c.Context, string(c.Language), maxLength)
		ok := strings.Contains(strings.ToLower(answer), strings.ToLower(c.Expected))
		rep.Results = append(rep.Results, caseResult{Case: c, Answer: answer, Passed: ok})
		total[c.Language]++
		if ok {
			passed[c.Language]++
		}
	}
	for lang, n := range total {
		rep.PassRate[lang] = float64(passed[lang]) / float64(n)
	}
	return rep
}

func printReport(w io.Writer, rep report) {
	for _, lang := range language.All() {
		fmt.Fprintf(w, "=== %s ===\n", lang)
		for _, r := range rep.Results {
			if r.Case.Language != lang {
				continue
			}
			mark := "FAIL"
			if r.Passed {
				mark = "PASS"
			}
			fmt.Fprintf(w, "[%s] Q: %s\n       expected: %s\n       got:      %s\n", mark, r.Case.Question, r.Case.Expected, r.Answer)
		}
		if rate, ok := rep.PassRate[lang]; ok {
			fmt.Fprintf(w, "%s pass rate: %.0f%%\n\n", lang, rate*100)
		}
	}
}
