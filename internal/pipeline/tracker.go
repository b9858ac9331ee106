// =============================================================================
// tracker.go - トラッカー本体（オーケストレーター）
// =============================================================================
//
// キーワードごとに「検索 → 取得 → 日付解決 → 期間フィルタ → 分類」を実行し、
// 結果を2つのテーブルに振り分けます。
//
// 【処理の流れ】（キーワードごと。キーワード×リーダーの組み合わせではない）
//
//	Paginator.Search(keyword)
//	  ↓ 各ヒットについて
//	URLから日付を推定（ネットワークなし） + Fetcher.Fetch（日付カスケード込み）
//	  ↓
//	どちらかの日付が存在し、期間 [start, end] の外なら → 完全に除外
//	  ↓
//	本文がキーワードまたはリーダー名を含む → ArticleRecord（Matched）
//	それ以外（アクセス不可・非マッチ）   → UnresolvedRecord（Unresolved）
//
// 【重要】日付が不明な記事は除外しない（内容のマッチングに進む）
//
// =============================================================================
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoKeywords はキーワードが1つも指定されていないことを表す
	ErrNoKeywords = errors.New("at least one keyword is required")

	// ErrInvalidDateRange は開始日が終了日より後であることを表す
	ErrInvalidDateRange = errors.New("start date is after end date")
)

// Tracker は1回の実行を組み立てる
type Tracker struct {
	Paginator  *Paginator
	Fetcher    *Fetcher
	Classifier *Classifier
	MaxPages   int
	Delay      DelayRange
}

// NewTracker は設定から全コンポーネントを組み立てる
func NewTracker(cfg TrackerConfig, categories []Category) *Tracker {
	client := newHTTPClient()
	return &Tracker{
		Paginator:  NewPaginator(cfg.Search, client),
		Fetcher:    NewFetcher(cfg.Fetch, client, NewDateResolver(nil)),
		Classifier: NewClassifier(categories),
		MaxPages:   cfg.Search.MaxPages,
		Delay:      cfg.Search.Delay(),
	}
}

// Run はキーワードごとに検索し、期間内の記事を分類して返す
//
// 個々の検索・取得の失敗は結果に反映されるだけで、エラーにはならない。
// エラーになるのは入力が不正な場合のみ。
func (t *Tracker) Run(ctx context.Context, keywords, leaders []string, start, end time.Time) (*Result, error) {
	keywords = uniqStrings(keywords)
	if len(keywords) == 0 {
		return nil, ErrNoKeywords
	}
	start, end = dateOnly(start), dateOnly(end)
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidDateRange, start.Format(DateLayout), end.Format(DateLayout))
	}

	res := &Result{
		RunID:      uuid.NewString(),
		Matched:    []ArticleRecord{},
		Unresolved: []UnresolvedRecord{},
	}
	relevance := uniqStrings(append(append([]string{}, keywords...), leaders...))
	infof("run %s: %d keywords, %d leaders, range %s..%s",
		res.RunID, len(keywords), len(leaders), start.Format(DateLayout), end.Format(DateLayout))

	for _, kw := range keywords {
		hits := t.Paginator.Search(ctx, kw, t.MaxPages, t.Delay)
		for _, hit := range hits {
			t.processHit(ctx, hit, leaders, relevance, start, end, res)
		}
	}

	infof("run %s: found %d relevant articles, %d articles could not be accessed",
		res.RunID, len(res.Matched), len(res.Unresolved))
	return res, nil
}

func (t *Tracker) processHit(ctx context.Context, hit SearchHit, leaders, relevance []string, start, end time.Time, res *Result) {
	urlDate := DateFromURL(hit.URL)
	doc := t.Fetcher.Fetch(ctx, hit.URL)

	if outOfRange(urlDate, start, end) || outOfRange(doc.PublishDate, start, end) {
		debugf("drop %s: outside date range", hit.URL)
		return
	}

	if doc.FullText == "" || !t.Classifier.KeywordRelevance(doc.FullText, relevance) {
		res.Unresolved = append(res.Unresolved, UnresolvedRecord{
			Title:         hit.Title,
			URL:           hit.URL,
			PublishedDate: formatDate(firstDate(doc.PublishDate, urlDate)),
		})
		return
	}

	res.Matched = append(res.Matched, ArticleRecord{
		Title:            hit.Title,
		URL:              hit.URL,
		PublishedDate:    formatDate(doc.PublishDate),
		EventDate:        t.Classifier.ExtractEventDate(doc.FullText),
		LeadersMentioned: t.Classifier.LeadersMentioned(doc.FullText, leaders),
		Category:         t.Classifier.Categorize(doc.FullText),
		NamedEntities:    t.Classifier.ExtractEntities(doc.FullText),
		Summary:          renderSummary(doc),
	})
}

// outOfRange は日付が存在し、かつ [start, end] の外にある場合にtrue
func outOfRange(d *time.Time, start, end time.Time) bool {
	if d == nil {
		return false
	}
	day := dateOnly(*d)
	return day.Before(start) || day.After(end)
}

// renderSummary は要約、なければ本文の先頭500文字、それもなければ固定文言
func renderSummary(doc FetchedDocument) string {
	switch {
	case doc.Summary != "":
		return doc.Summary
	case doc.FullText != "":
		runes := []rune(doc.FullText)
		if len(runes) > summaryFallbackN {
			runes = runes[:summaryFallbackN]
		}
		return string(runes) + "..."
	default:
		return NoSummary
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
