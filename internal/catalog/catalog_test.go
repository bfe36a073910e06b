package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multilingual-qa/internal/language"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	assert.Len(t, c.Smoke, 4)

	perf := c.PerformanceTable()
	assert.InDelta(t, 43.12, perf[language.German].BLEU, 1e-9)
	assert.InDelta(t, 0.6329, perf[language.English].F1, 1e-9)
}

func TestGetExample(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	tests := []struct {
		cat          Category
		lang         language.Language
		wantQuestion string
	}{
		{GeneralKnowledge, language.English, "What is the capital of France?"},
		{Historical, language.English, "When was the Eiffel Tower built?"},
		{Scientific, language.German, "Was ist der größte Planet in unserem Sonnensystem?"},
		{Historical, language.German, "Wann wurde der Berliner Fernsehturm gebaut?"},
	}
	for _, tt := range tests {
		t.Run(string(tt.lang)+"/"+string(tt.cat), func(t *testing.T) {
			ex, err := c.GetExample(tt.cat, tt.lang)
			require.NoError(t, err)
			assert.Equal(t, tt.wantQuestion, ex.Question)
			assert.NotEmpty(t, ex.Context)
		})
	}

	_, err = c.GetExample("Poetry", language.English)
	assert.ErrorIs(t, err, ErrUnknownCategory)
	_, err = c.GetExample(GeneralKnowledge, "French")
	assert.ErrorIs(t, err, language.ErrUnknownLanguage)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("Scientific")
	require.NoError(t, err)
	assert.Equal(t, Scientific, c)

	_, err = ParseCategory("scientific")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestParseRejectsIncompleteCatalog(t *testing.T) {
	_, err := Parse([]byte(`
examples:
  English:
    General Knowledge: {question: q, context: c}
performance: {}
`))
	assert.Error(t, err)

	_, err = Parse([]byte("examples: ["))
	assert.Error(t, err)
}
