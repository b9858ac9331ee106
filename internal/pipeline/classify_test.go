package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecognizer struct {
	entities []Entity
	err      error
}

func (s stubRecognizer) Recognize(string) ([]Entity, error) { return s.entities, s.err }

func newTestClassifier() *Classifier {
	c := NewClassifier(nil)
	c.Recognizer = stubRecognizer{}
	c.Miner = &RegexDateMiner{Now: nowFunc}
	return c
}

func TestCategorize(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"keynote session", "We are excited to announce our keynote session at the summit", "Speaking Opportunity"},
		{"declaration order beats specificity", "The agency announced it will deliver the keynote at the festival.", "Press Release"},
		{"case insensitive", "Named to the JURY PANEL for the awards.", "Jury"},
		{"interview", "In an exclusive interview, the CEO spoke about growth.", "Interviews"},
		{"commentary", "According to the report, spends rose.", "Article Commentary"},
		{"explicit brief mention", "Congratulations on the promotion!", "Brief Mentions"},
		{"no keyword falls back to default", "A quiet week in the market.", DefaultCategory},
		{"empty text", "", DefaultCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Categorize(tt.text))
		})
	}
}

func TestCategorize_CustomOrder(t *testing.T) {
	c := newTestClassifier()
	c.Categories = []Category{
		{Label: "Speaking Opportunity", Keywords: []string{"keynote"}},
		{Label: "Press Release", Keywords: []string{"announced"}},
	}
	assert.Equal(t, "Speaking Opportunity", c.Categorize("The agency announced it will deliver the keynote."))
}

func TestExtractEntities(t *testing.T) {
	c := newTestClassifier()
	c.Recognizer = stubRecognizer{entities: []Entity{
		{Text: "Jane Doe", Label: "PERSON"},
		{Text: "Mumbai", Label: "GPE"},
		{Text: "Tuesday", Label: "DATE"},
		{Text: "Omnicom", Label: "ORG"},
		{Text: "Jane Doe", Label: "PERSON"},
	}}

	assert.Equal(t, []string{"Jane Doe", "Mumbai", "Omnicom", "Jane Doe"}, c.ExtractEntities("text"))
}

func TestExtractEntities_RecognizerFailure(t *testing.T) {
	c := newTestClassifier()
	c.Recognizer = stubRecognizer{err: errors.New("model unavailable")}

	got := c.ExtractEntities("text")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestExtractEventDate(t *testing.T) {
	c := newTestClassifier()

	assert.Equal(t, NotMentioned, c.ExtractEventDate("The agency had a great year."))
	assert.Equal(t, "2024-03-05", c.ExtractEventDate("The ceremony took place on March 5, 2024 in Goa, after the 2023 edition."))
	assert.Equal(t, "2023-12-25", c.ExtractEventDate("The party is on December 25."), "past interpretation is preferred")
	assert.Equal(t, NotMentioned, c.ExtractEventDate(""))
	assert.Equal(t, NotMentioned, c.ExtractEventDate("Around 12 mayors met 3 junior planners."))
}

func TestKeywordRelevance(t *testing.T) {
	c := newTestClassifier()
	keywords := []string{"OMG India", "Jane Doe"}

	assert.True(t, c.KeywordRelevance("Leadership change at omg india announced", keywords))
	assert.True(t, c.KeywordRelevance("JANE DOE joins the board", keywords))
	assert.False(t, c.KeywordRelevance("Nothing relevant", keywords))
	assert.False(t, c.KeywordRelevance("anything", nil))
}

func TestLeadersMentioned(t *testing.T) {
	c := newTestClassifier()
	leaders := []string{"Jane Doe", "John Roe", "Ann Poe"}

	assert.Equal(t, "Jane Doe, Ann Poe", c.LeadersMentioned("jane doe and ANN POE spoke.", leaders))
	assert.Equal(t, NotMentioned, c.LeadersMentioned("No leaders here.", leaders))
	assert.Equal(t, NotMentioned, c.LeadersMentioned("Jane Doe", nil))
}

func TestLoadCategories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- label: Awards
  keywords: [shortlist, award]
- label: Press Release
  keywords:
    - announced
`), 0o644))

	cats, err := LoadCategories(path)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Awards", cats[0].Label)
	assert.Equal(t, []string{"shortlist", "award"}, cats[0].Keywords)
	assert.Equal(t, "Press Release", cats[1].Label)

	c := NewClassifier(cats)
	assert.Equal(t, "Awards", c.Categorize("Shortlist announced"))
}

func TestLoadCategories_Errors(t *testing.T) {
	_, err := LoadCategories(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- keywords: [x]\n"), 0o644))
	_, err = LoadCategories(path)
	assert.ErrorIs(t, err, errInvalidConfig)
}

func TestDefaultCategoriesOrder(t *testing.T) {
	labels := make([]string, 0, len(DefaultCategories))
	for _, c := range DefaultCategories {
		labels = append(labels, c.Label)
	}
	assert.Equal(t, []string{
		"Press Release", "Jury", "Interviews", "Speaking Opportunity", "Article Commentary", "Brief Mentions",
	}, labels)
}
