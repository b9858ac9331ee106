package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleResult() *Result {
	return &Result{
		RunID: "run-1",
		Matched: []ArticleRecord{{
			Title:            "OMG names new India lead",
			URL:              "https://news.example/omg",
			PublishedDate:    "2023-05-10",
			EventDate:        "2023-05-10",
			LeadersMentioned: "Jane Doe",
			Category:         "Press Release",
			NamedEntities:    []string{"Omnicom Media Group", "Jane Doe"},
			Summary:          "Jane Doe will lead India operations.",
		}},
		Unresolved: []UnresolvedRecord{
			{Title: "Paywalled", URL: "https://news.example/paywall", PublishedDate: UnknownDate},
		},
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteXLSX(path, sampleResult()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetMatched, SheetUnresolved}, f.GetSheetList())

	rows, err := f.GetRows(SheetMatched)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ArticleColumns, rows[0])
	assert.Equal(t, []string{
		"OMG names new India lead", "https://news.example/omg", "2023-05-10", "2023-05-10",
		"Jane Doe", "Press Release", "Omnicom Media Group, Jane Doe", "Jane Doe will lead India operations.",
	}, rows[1])

	rows, err = f.GetRows(SheetUnresolved)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		UnresolvedColumns,
		{"Paywalled", "https://news.example/paywall", "Unknown"},
	}, rows)
}

func TestWriteXLSX_EmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteXLSX(path, &Result{}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetUnresolved)
	require.NoError(t, err)
	assert.Equal(t, [][]string{UnresolvedColumns}, rows)
}

func TestRenderTables(t *testing.T) {
	var buf bytes.Buffer
	RenderTables(&buf, sampleResult())

	out := buf.String()
	assert.Contains(t, out, "Found 1 relevant articles")
	assert.Contains(t, out, "1 articles could not be accessed")
	assert.Contains(t, out, "OMG names new India lead")
	assert.Contains(t, out, "Paywalled")
	assert.Contains(t, out, "LEADER MENTIONED")
}

func TestRenderTables_Empty(t *testing.T) {
	var buf bytes.Buffer
	RenderTables(&buf, &Result{})
	assert.Contains(t, buf.String(), "Found 0 relevant articles")
	assert.NotContains(t, buf.String(), "TITLE")
}

func TestWriteJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteJSONFile(path, sampleResult()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Result
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Contains(t, string(b), `"publishedDate": "2023-05-10"`)
}
