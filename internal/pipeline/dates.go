// =============================================================================
// dates.go - 公開日の解決（カスケード）
// =============================================================================
//
// 記事ページの公開日を、信頼性の低いシグナルを順番に試して推定します。
// 各ステージは前のステージが何も返さなかった場合にのみ実行されます。
//
// 【カスケードの順序】（固定）
//
//	1. メタデータ        <meta property|name|itemprop="..."> の既知の属性名
//	     ↓
//	2. サイト固有/汎用   ドメイン別クラス → JSON-LD(datePublished/uploadDate)
//	                      → <time>, .entry-date, .date, .byline など
//	     ↓
//	3. URLパターン       /2024-03-05/, /20240305/, 20240305143000
//	     ↓
//	4. 本文マイニング    本文中の日付表現（過去優先、2000年以降、未来日付は除外）
//
// 【重要】どのステージのパースエラーも「結果なし」として扱い、外に出さない。
// 全ステージが空なら nil（= "Unknown"）を返す。
//
// 【タイムゾーン】
//
//	得られた日時はオフセット/ゾーンを捨て、表記どおりの年月日時分秒を
//	UTCロケーションの値として保持する（タイムゾーンなしの値として扱う）
//
// =============================================================================
package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// metaDateNames はメタデータ上の公開日属性名（この順で探す）
var metaDateNames = []string{
	"article:published_time",
	"og:published_time",
	"datePublished",
	"publish_date",
	"pubdate",
	"publishdate",
	"date",
	"article:published",
	"parsely-pub-date",
	"dc.date",
	"dc.date.issued",
}

// SiteDateRule はドメイン固有の日付要素セレクタ
type SiteDateRule struct {
	Domain    string
	Selectors []string
}

// defaultSiteRules は標準的なメタデータを出さないサイト向けのルール
var defaultSiteRules = []SiteDateRule{
	{Domain: "exchange4media.com", Selectors: []string{".news-date", ".date-time", "span.date"}},
	{Domain: "afaqs.com", Selectors: []string{".article-date", ".art-date"}},
	{Domain: "campaignindia.in", Selectors: []string{".article-date", ".dateTime"}},
	{Domain: "economictimes.indiatimes.com", Selectors: []string{".publish_on", "time.jsdtTime"}},
	{Domain: "livemint.com", Selectors: []string{".pubtime", "span.articleInfo"}},
}

// genericDateSelectors は日付を含みやすい汎用タグ・クラス
var genericDateSelectors = []string{
	"time",
	".entry-date",
	".date",
	".story-date",
	".byline",
	".published",
	".post-date",
}

var (
	// 14桁を先に評価する（8桁が14桁の先頭にマッチしないように）
	reURLDate      = regexp.MustCompile(`(\d{4}[-/]\d{2}[-/]\d{2})|(?:^|\D)(\d{14}|\d{8})(?:\D|$)`)
	errNoDateFound = errors.New("no date found")
)

// dateInput はカスケードの各ステージに渡す入力
type dateInput struct {
	doc  *goquery.Document
	url  string
	text string
}

// dateStage は入力から日付を1つ推定する純粋関数
type dateStage struct {
	name string
	fn   func(in dateInput) (*time.Time, error)
}

// DateResolver は公開日のカスケードを実行する
type DateResolver struct {
	Miner     DateMiner
	SiteRules []SiteDateRule
	Now       func() time.Time
}

// NewDateResolver はデフォルトのサイトルールでDateResolverを生成する
func NewDateResolver(miner DateMiner) *DateResolver {
	if miner == nil {
		miner = NewRegexDateMiner()
	}
	return &DateResolver{
		Miner:     miner,
		SiteRules: defaultSiteRules,
		Now:       time.Now,
	}
}

func (r *DateResolver) stages() []dateStage {
	return []dateStage{
		{name: "metadata", fn: fromMetadata},
		{name: "markup", fn: r.fromMarkup},
		{name: "url", fn: func(in dateInput) (*time.Time, error) { return parseURLDate(in.url) }},
		{name: "text", fn: r.fromText},
	}
}

// Resolve は markup・URL・本文から公開日を推定する（見つからなければnil）
func (r *DateResolver) Resolve(markup, rawURL, fullText string) *time.Time {
	in := dateInput{url: rawURL, text: fullText}
	if strings.TrimSpace(markup) != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
		if err != nil {
			debugf("date: markup parse failed for %s: %v", rawURL, err)
		} else {
			in.doc = doc
		}
	}

	for _, st := range r.stages() {
		t, err := runStage(st, in)
		if err != nil {
			if !errors.Is(err, errNoDateFound) {
				debugf("date: stage %s failed for %s: %v", st.name, rawURL, err)
			}
			continue
		}
		if t != nil {
			debugf("date: %s resolved by %s stage: %s", rawURL, st.name, t.Format(DateLayout))
			return t
		}
	}
	return nil
}

// runStage はステージを実行し、panicもエラーとして扱う
func runStage(st dateStage, in dateInput) (t *time.Time, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			t, err = nil, fmt.Errorf("stage %s panicked: %v", st.name, rec)
		}
	}()
	return st.fn(in)
}

// =============================================================================
// ステージ1: メタデータ
// =============================================================================

func fromMetadata(in dateInput) (*time.Time, error) {
	if in.doc == nil {
		return nil, errNoDateFound
	}
	metas := in.doc.Find("meta")
	for _, name := range metaDateNames {
		var found *time.Time
		metas.EachWithBreak(func(_ int, m *goquery.Selection) bool {
			if !metaMatches(m, name) {
				return true
			}
			content := strings.TrimSpace(m.AttrOr("content", ""))
			if content == "" {
				return true
			}
			if t, err := parseDate(content); err == nil {
				found = &t
			}
			// 最初にマッチしたタグだけを見る
			return false
		})
		if found != nil {
			return found, nil
		}
	}
	return nil, errNoDateFound
}

func metaMatches(m *goquery.Selection, name string) bool {
	for _, attr := range []string{"property", "name", "itemprop"} {
		if v, ok := m.Attr(attr); ok && strings.EqualFold(strings.TrimSpace(v), name) {
			return true
		}
	}
	return false
}

// =============================================================================
// ステージ2: サイト固有・JSON-LD・汎用マークアップ
// =============================================================================

func (r *DateResolver) fromMarkup(in dateInput) (*time.Time, error) {
	if in.doc == nil {
		return nil, errNoDateFound
	}

	host := hostOf(in.url)
	for _, rule := range r.SiteRules {
		if host != rule.Domain && !strings.HasSuffix(host, "."+rule.Domain) {
			continue
		}
		if t := r.firstElementDate(in.doc, rule.Selectors); t != nil {
			return t, nil
		}
	}

	if t := fromJSONLD(in.doc); t != nil {
		return t, nil
	}

	if t := r.firstElementDate(in.doc, genericDateSelectors); t != nil {
		return t, nil
	}
	return nil, errNoDateFound
}

// firstElementDate はセレクタ順・文書順で最初にパースできた日付を返す
func (r *DateResolver) firstElementDate(doc *goquery.Document, selectors []string) *time.Time {
	for _, sel := range selectors {
		var found *time.Time
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			for _, attr := range []string{"datetime", "content", "data-date"} {
				if v, ok := s.Attr(attr); ok {
					if t, err := parseDate(v); err == nil {
						found = &t
						return false
					}
				}
			}
			if t := r.parseLoose(s.Text()); t != nil {
				found = t
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// parseLoose は要素テキスト全体を日付として読み、だめなら中の日付表現を探す
// （例: "By Jane Doe | March 3, 2024 10:15 IST"）
func (r *DateResolver) parseLoose(text string) *time.Time {
	text = normalizeWhitespace(text)
	if text == "" || len(text) > 200 {
		return nil
	}
	if t, err := parseDate(text); err == nil {
		return &t
	}
	if r.Miner == nil {
		return nil
	}
	if ms := r.Miner.SearchDates(text, true); len(ms) > 0 {
		t := naive(ms[0].Date)
		return &t
	}
	return nil
}

// fromJSONLD は application/ld+json から datePublished / uploadDate を探す
//
// 不正なJSONのブロックは黙ってスキップする。
func fromJSONLD(doc *goquery.Document) *time.Time {
	var found *time.Time
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			debugf("date: skipping malformed JSON-LD block: %v", err)
			return true
		}
		if v := findJSONLDDate(data); v != "" {
			if t, err := parseDate(v); err == nil {
				found = &t
				return false
			}
		}
		return true
	})
	return found
}

// findJSONLDDate はオブジェクト・配列・@graph を再帰的にたどる
func findJSONLDDate(v any) string {
	switch node := v.(type) {
	case map[string]any:
		for _, key := range []string{"datePublished", "uploadDate"} {
			if s, ok := node[key].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
		if g, ok := node["@graph"]; ok {
			if s := findJSONLDDate(g); s != "" {
				return s
			}
		}
		keys := make([]string, 0, len(node))
		for k := range node {
			if k != "@graph" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := node[k]
			switch child.(type) {
			case map[string]any, []any:
				if s := findJSONLDDate(child); s != "" {
					return s
				}
			}
		}
	case []any:
		for _, item := range node {
			if s := findJSONLDDate(item); s != "" {
				return s
			}
		}
	}
	return ""
}

// =============================================================================
// ステージ3: URLパターン
// =============================================================================

// DateFromURL はURL中の日付セグメントを解釈する（ネットワーク不要）
func DateFromURL(rawURL string) *time.Time {
	t, err := parseURLDate(rawURL)
	if err != nil {
		return nil
	}
	return t
}

func parseURLDate(rawURL string) (*time.Time, error) {
	m := reURLDate.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, errNoDateFound
	}

	var (
		t   time.Time
		err error
	)
	switch {
	case m[1] != "":
		t, err = time.Parse(DateLayout, strings.ReplaceAll(m[1], "/", "-"))
	case len(m[2]) == 14:
		t, err = time.Parse("20060102150405", m[2])
	default:
		t, err = time.Parse("20060102", m[2])
	}
	if err != nil {
		return nil, fmt.Errorf("url date %q: %w", m[0], err)
	}
	return &t, nil
}

// =============================================================================
// ステージ4: 本文マイニング
// =============================================================================

// minMinedYear より前の年はパース誤りとみなす
const minMinedYear = 2000

func (r *DateResolver) fromText(in dateInput) (*time.Time, error) {
	if strings.TrimSpace(in.text) == "" || r.Miner == nil {
		return nil, errNoDateFound
	}
	now := r.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	for _, m := range r.Miner.SearchDates(in.text, true) {
		t := naive(m.Date)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if t.Year() >= minMinedYear && !day.After(today) {
			return &t, nil
		}
		debugf("date: rejected mined candidate %q (%s)", m.Text, t.Format(DateLayout))
	}
	return nil, errNoDateFound
}

func (r *DateResolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// =============================================================================
// パースヘルパー
// =============================================================================

// fallbackLayouts はdateparseが読めない表記用
var fallbackLayouts = []string{
	"January 2, 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"02 Jan 2006",
	"January 2, 2006 15:04",
	"Jan 2, 2006 3:04 PM",
	"Monday, January 2, 2006",
}

// parseDate は任意の日付文字列を解釈し、ゾーンを捨てた値を返す
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errNoDateFound
	}
	if t, err := dateparse.ParseAny(s); err == nil {
		return naive(t), nil
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return naive(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// naive はゾーン情報を捨て、表記どおりの年月日時分秒をUTCとして返す
func naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
