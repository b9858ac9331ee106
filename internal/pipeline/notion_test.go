package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewNotionClipper(t *testing.T) {
	_, err := NewNotionClipper("", "db")
	assert.ErrorContains(t, err, "NOTION_TOKEN")

	nc, err := NewNotionClipper("secret", "")
	require.NoError(t, err)
	assert.Empty(t, nc.DatabaseID())

	err = nc.ClipArticle(context.Background(), ArticleRecord{Title: "x"})
	assert.ErrorIs(t, err, errNotionDatabaseUnset)

	assert.Equal(t, 1, nc.ClipAll(context.Background(), []ArticleRecord{{Title: "x"}}))
}

func TestClipAll_LogsFailuresAsErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	nc, err := NewNotionClipper("secret", "")
	require.NoError(t, err)
	assert.Equal(t, 2, nc.ClipAll(context.Background(), []ArticleRecord{{Title: "a"}, {Title: "b"}}))

	failures := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, failures, 2)
	assert.Contains(t, failures[0].Message, errNotionDatabaseUnset.Error())
}

func TestCreateDatabase_NeedsPage(t *testing.T) {
	nc, err := NewNotionClipper("secret", "")
	require.NoError(t, err)
	assert.ErrorContains(t, nc.CreateDatabase(context.Background(), "", DefaultCategories), "NOTION_PAGE_ID")
}

func TestArticleProperties(t *testing.T) {
	r := sampleResult().Matched[0]
	props := articleProperties(r)

	title, ok := props["Title"].(notionapi.TitleProperty)
	require.True(t, ok)
	assert.Equal(t, "OMG names new India lead", title.Title[0].Text.Content)

	category, ok := props["Category"].(notionapi.SelectProperty)
	require.True(t, ok)
	assert.Equal(t, "Press Release", category.Select.Name)

	entities, ok := props["Named Entities"].(notionapi.RichTextProperty)
	require.True(t, ok)
	assert.Equal(t, "Omnicom Media Group, Jane Doe", entities.RichText[0].Text.Content)

	published, ok := props["Published Date"].(notionapi.DateProperty)
	require.True(t, ok)
	require.NotNil(t, published.Date)
	assert.Equal(t, "2023-05-10", time.Time(*published.Date.Start).Format(DateLayout))
}

func TestArticleProperties_UnknownDate(t *testing.T) {
	r := sampleResult().Matched[0]
	r.PublishedDate = UnknownDate
	r.Summary = strings.Repeat("a", notionTextLimit+100)

	props := articleProperties(r)
	_, ok := props["Published Date"]
	assert.False(t, ok)

	summary := props["Summary"].(notionapi.RichTextProperty)
	assert.Len(t, summary.RichText[0].Text.Content, notionTextLimit)
}
