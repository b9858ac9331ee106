// =============================================================================
// datemine.go - 自由テキストからの日付抽出
// =============================================================================
//
// 本文などの自由テキストから日付表現を探し、出現順に返します。
// 公開日カスケードの最終ステージと、イベント日付の抽出で使用します。
//
// 【対応している表記】
//   - 2024-03-05 / 03/05/2024
//   - March 5, 2024 / Mar 5 / 5th March 2024 / 5 Mar
//   - March 2024
//   - today / yesterday / 3 days ago / 2 weeks ago
//   - 単独の年（"in 1998"）
//
// 月名は語として完結している場合のみ（"5 marketing" は日付ではない）
//
// 【過去優先（preferPast）】
//
//	年のない表記（"March 5"）は今年として読み、未来になる場合は前年とする
//
// =============================================================================
package pipeline

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateMatch はテキスト中で見つかった日付
type DateMatch struct {
	Text string
	Date time.Time
}

// DateMiner は自由テキストから日付を探す外部ユーティリティの抽象
type DateMiner interface {
	SearchDates(text string, preferPast bool) []DateMatch
}

const monthPattern = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)(?:\.|\b)`

var (
	reMineISO        = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	reMineSlash      = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	reMineMonthDay   = regexp.MustCompile(`(?i)\b` + monthPattern + `\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`)
	reMineDayMonth   = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthPattern + `(?:,?\s+(\d{4})\b)?`)
	reMineMonthYear  = regexp.MustCompile(`(?i)\b` + monthPattern + `\s+(\d{4})\b`)
	reMineRelative   = regexp.MustCompile(`(?i)\b(today|yesterday|(\d{1,3})\s+(day|week|month|year)s?\s+ago)\b`)
	reMineBareYear   = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	monthsByAbbrev   = map[string]time.Month{"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6, "jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12}
	defaultMineOrder = []func(m *RegexDateMiner, text string, now time.Time, preferPast bool) []minedSpan{
		mineISO, mineSlash, mineMonthDay, mineDayMonth, mineMonthYear, mineRelative, mineBareYear,
	}
)

// RegexDateMiner は正規表現ベースのDateMiner
type RegexDateMiner struct {
	Now func() time.Time
}

// NewRegexDateMiner は現在時刻を基準にするRegexDateMinerを返す
func NewRegexDateMiner() *RegexDateMiner {
	return &RegexDateMiner{Now: time.Now}
}

type minedSpan struct {
	start, end int
	match      DateMatch
}

// SearchDates はテキスト中の日付を出現順に返す
//
// 重なる候補は先に始まる方（同じ位置なら長い方）を採用する。
func (m *RegexDateMiner) SearchDates(text string, preferPast bool) []DateMatch {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}

	var spans []minedSpan
	for _, fn := range defaultMineOrder {
		spans = append(spans, fn(m, text, now, preferPast)...)
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end-spans[i].start > spans[j].end-spans[j].start
	})

	out := make([]DateMatch, 0, len(spans))
	lastEnd := -1
	for _, s := range spans {
		if s.start < lastEnd {
			continue
		}
		out = append(out, s.match)
		lastEnd = s.end
	}
	return out
}

// validDate は日付として正しい場合のみ値を返す（2月30日などは除外）
func validDate(y int, mo time.Month, d int) (time.Time, bool) {
	if mo < time.January || mo > time.December || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != mo {
		return time.Time{}, false
	}
	return t, true
}

func monthOf(s string) (time.Month, bool) {
	s = strings.ToLower(strings.TrimSuffix(s, "."))
	if len(s) < 3 {
		return 0, false
	}
	mo, ok := monthsByAbbrev[s[:3]]
	return mo, ok
}

// withYear は年のない日付に年を補う
func withYear(mo time.Month, d int, yearText string, now time.Time, preferPast bool) (time.Time, bool) {
	if yearText != "" {
		y, _ := strconv.Atoi(yearText)
		return validDate(y, mo, d)
	}
	t, ok := validDate(now.Year(), mo, d)
	if ok && preferPast && t.After(now) {
		t, ok = validDate(now.Year()-1, mo, d)
	}
	return t, ok
}

func newSpan(text string, idx []int, t time.Time) minedSpan {
	return minedSpan{
		start: idx[0],
		end:   idx[1],
		match: DateMatch{Text: text[idx[0]:idx[1]], Date: t},
	}
}

func mineISO(_ *RegexDateMiner, text string, _ time.Time, _ bool) []minedSpan {
	var out []minedSpan
	for _, idx := range reMineISO.FindAllStringSubmatchIndex(text, -1) {
		y, _ := strconv.Atoi(text[idx[2]:idx[3]])
		mo, _ := strconv.Atoi(text[idx[4]:idx[5]])
		d, _ := strconv.Atoi(text[idx[6]:idx[7]])
		if t, ok := validDate(y, time.Month(mo), d); ok {
			out = append(out, newSpan(text, idx, t))
		}
	}
	return out
}

// mineSlash は 03/05/2024 形式をdateparseの規則（月/日）で読む
func mineSlash(_ *RegexDateMiner, text string, _ time.Time, _ bool) []minedSpan {
	var out []minedSpan
	for _, idx := range reMineSlash.FindAllStringIndex(text, -1) {
		t, err := dateparse.ParseAny(text[idx[0]:idx[1]])
		if err != nil {
			continue
		}
		out = append(out, newSpan(text, idx, naive(t)))
	}
	return out
}

func mineMonthDay(_ *RegexDateMiner, text string, now time.Time, preferPast bool) []minedSpan {
	var out []minedSpan
	for _, idx := range reMineMonthDay.FindAllStringSubmatchIndex(text, -1) {
		mo, ok := monthOf(text[idx[2]:idx[3]])
		if !ok {
			continue
		}
		d, _ := strconv.Atoi(text[idx[4]:idx[5]])
		year := ""
		if idx[6] >= 0 {
			year = text[idx[6]:idx[7]]
		}
		if t, ok := withYear(mo, d, year, now, preferPast); ok {
			out = append(out, newSpan(text, idx, t))
		}
	}
	return out
}

func mineDayMonth(_ *RegexDateMiner, text string, now time.Time, preferPast bool) []minedSpan {
	var out []minedSpan
	for _, idx := range reMineDayMonth.FindAllStringSubmatchIndex(text, -1) {
		d, _ := strconv.Atoi(text[idx[2]:idx[3]])
		mo, ok := monthOf(text[idx[4]:idx[5]])
		if !ok {
			continue
		}
		year := ""
		if idx[6] >= 0 {
			year = text[idx[6]:idx[7]]
		}
		if t, ok := withYear(mo, d, year, now, preferPast); ok {
			out = append(out, newSpan(text, idx, t))
		}
	}
	return out
}

func mineMonthYear(_ *RegexDateMiner, text string, _ time.Time, _ bool) []minedSpan {
	var out []minedSpan
	for _, idx := range reMineMonthYear.FindAllStringSubmatchIndex(text, -1) {
		mo, ok := monthOf(text[idx[2]:idx[3]])
		if !ok {
			continue
		}
		y, _ := strconv.Atoi(text[idx[4]:idx[5]])
		if t, ok := validDate(y, mo, 1); ok {
			out = append(out, newSpan(text, idx, t))
		}
	}
	return out
}

func mineRelative(_ *RegexDateMiner, text string, now time.Time, _ bool) []minedSpan {
	var out []minedSpan
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for _, idx := range reMineRelative.FindAllStringSubmatchIndex(text, -1) {
		word := strings.ToLower(text[idx[2]:idx[3]])
		var t time.Time
		switch {
		case word == "today":
			t = today
		case word == "yesterday":
			t = today.AddDate(0, 0, -1)
		default:
			n, _ := strconv.Atoi(text[idx[4]:idx[5]])
			switch strings.ToLower(text[idx[6]:idx[7]]) {
			case "day":
				t = today.AddDate(0, 0, -n)
			case "week":
				t = today.AddDate(0, 0, -7*n)
			case "month":
				t = today.AddDate(0, -n, 0)
			default:
				t = today.AddDate(-n, 0, 0)
			}
		}
		out = append(out, newSpan(text, idx, t))
	}
	return out
}

// mineBareYear は単独の年を1月1日として読む
func mineBareYear(_ *RegexDateMiner, text string, _ time.Time, _ bool) []minedSpan {
	var out []minedSpan
	for _, idx := range reMineBareYear.FindAllStringSubmatchIndex(text, -1) {
		y, _ := strconv.Atoi(text[idx[2]:idx[3]])
		out = append(out, newSpan(text, idx, time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)))
	}
	return out
}
