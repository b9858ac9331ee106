package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minedDays(ms []DateMatch) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Date.Format(DateLayout))
	}
	return out
}

func TestRegexDateMiner_SearchDates(t *testing.T) {
	miner := &RegexDateMiner{Now: nowFunc}

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"iso and long form in order", "Held on March 5, 2024 and again on 2024-04-01.", []string{"2024-03-05", "2024-04-01"}},
		{"day month year", "The awards night on 5th March 2024 drew a crowd.", []string{"2024-03-05"}},
		{"abbreviated month", "Published Sept. 14, 2023", []string{"2023-09-14"}},
		{"month and year", "Results for January 2024 are in.", []string{"2024-01-01"}},
		{"slash date", "Filed 03/05/2024 by staff", []string{"2024-03-05"}},
		{"bare year", "In 1998 we launched.", []string{"1998-01-01"}},
		{"relative days", "The deal closed 3 days ago.", []string{"2024-05-29"}},
		{"yesterday", "Announced yesterday in Mumbai.", []string{"2024-05-31"}},
		{"invalid day is skipped", "Due 2024-02-30 or 2024-02-29.", []string{"2024-01-01", "2024-02-29"}},
		{"no dates", "No dates in this sentence at all.", []string{}},
		{"number before month-like word", "The agency hired 5 marketing heads.", []string{}},
		{"number before dec-prefixed word", "Omnicom made 10 decisions this quarter.", []string{}},
		{"mayors and juniors", "Around 12 mayors met 3 junior planners.", []string{}},
		{"month-like word before number", "Marketing 5 teams, junior 12 staff.", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, minedDays(miner.SearchDates(tt.text, true)))
		})
	}
}

func TestRegexDateMiner_PreferPast(t *testing.T) {
	miner := &RegexDateMiner{Now: nowFunc}

	past := miner.SearchDates("The gala is on December 25.", true)
	require.Len(t, past, 1)
	assert.Equal(t, "2023-12-25", past[0].Date.Format(DateLayout))
	assert.Equal(t, "December 25", past[0].Text)

	future := miner.SearchDates("The gala is on December 25.", false)
	require.Len(t, future, 1)
	assert.Equal(t, "2024-12-25", future[0].Date.Format(DateLayout))

	// 過去の日付は年をまたがない
	earlier := miner.SearchDates("Signed on April 3.", true)
	require.Len(t, earlier, 1)
	assert.Equal(t, "2024-04-03", earlier[0].Date.Format(DateLayout))
}

func TestRegexDateMiner_EmptyText(t *testing.T) {
	assert.Empty(t, NewRegexDateMiner().SearchDates("   ", true))
}

func TestValidDate(t *testing.T) {
	_, ok := validDate(2023, time.February, 29)
	assert.False(t, ok)
	d, ok := validDate(2024, time.February, 29)
	assert.True(t, ok)
	assert.Equal(t, "2024-02-29", d.Format(DateLayout))
}
