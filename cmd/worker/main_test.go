package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"multilingual-qa/internal/app"
	"multilingual-qa/internal/engine"
	"multilingual-qa/internal/model"
	"multilingual-qa/internal/queue"
	"multilingual-qa/internal/store"
	"multilingual-qa/internal/tokenizer"
)

func newTestDeps(t *testing.T, m model.Model, st store.Store) app.Deps {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handle := &model.Handle{Model: m, Tokenizer: tokenizer.New(), Device: "cpu", Name: "test-model"}
	eng, err := engine.New(handle, log, engine.Options{})
	require.NoError(t, err)
	return app.Deps{Log: log, Model: handle, Engine: eng, Store: st}
}

func TestHandleAnswer(t *testing.T) {
	id := uuid.New()
	payload := queue.AnswerPayload{
		RecordID:  id,
		Question:  "Wer entwickelte die Relativitätstheorie?",
		Context:   "Albert Einstein entwickelte die Relativitätstheorie.",
		Language:  "German",
		MaxLength: 32,
	}

	tests := []struct {
		name    string
		payload queue.AnswerPayload
		setup   func(*model.MockModel, *store.MockStore)
		wantErr bool
	}{
		{
			name:    "answered",
			payload: payload,
			setup: func(m *model.MockModel, s *store.MockStore) {
				m.On("Generate", mock.Anything, mock.Anything, mock.MatchedBy(func(p model.GenerateParams) bool {
					return p.TargetLang == "de_DE" && p.ForcedBOSTokenID == 250003 && p.MaxLength == 32
				})).Return(model.Output{Text: "de_DE Albert Einstein </s>"}, nil).Once()
				s.On("Complete", mock.Anything, id, mock.MatchedBy(func(c store.Completion) bool {
					return c.Answer == "Albert Einstein" && c.Confidence == "High" && c.Outcome == "answered" && c.WordCount == 2
				})).Return(nil).Once()
			},
		},
		{
			name:    "model failure still completes the record",
			payload: payload,
			setup: func(m *model.MockModel, s *store.MockStore) {
				m.On("Generate", mock.Anything, mock.Anything, mock.Anything).
					Return(model.Output{}, errors.New("cuda out of memory")).Once()
				s.On("Complete", mock.Anything, id, mock.MatchedBy(func(c store.Completion) bool {
					return c.Outcome == "failed" && strings.HasPrefix(c.Answer, engine.ErrorPrefix) && c.Details == ""
				})).Return(nil).Once()
			},
		},
		{
			name:    "empty question is rejected without generation",
			payload: queue.AnswerPayload{RecordID: id, Question: "", Context: "text", Language: "English"},
			setup: func(m *model.MockModel, s *store.MockStore) {
				s.On("Complete", mock.Anything, id, mock.MatchedBy(func(c store.Completion) bool {
					return c.Outcome == "rejected" && c.Answer == engine.WarningMessage
				})).Return(nil).Once()
			},
		},
		{
			name:    "store failure is retried",
			payload: payload,
			setup: func(m *model.MockModel, s *store.MockStore) {
				m.On("Generate", mock.Anything, mock.Anything, mock.Anything).
					Return(model.Output{Text: "Albert Einstein"}, nil).Once()
				s.On("Complete", mock.Anything, id, mock.Anything).Return(errors.New("db down")).Once()
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(model.MockModel)
			s := new(store.MockStore)
			tt.setup(m, s)

			err := handleAnswer(context.Background(), newTestDeps(t, m, s), tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			m.AssertExpectations(t)
			s.AssertExpectations(t)
		})
	}
}
