// =============================================================================
// types.go - データ構造定義
// =============================================================================
//
// このファイルはMedia Tracker全体で使用するデータ構造（型）を定義します。
//
// 【このファイルで定義している型】
//   - SearchHit:        ニュース検索結果の1件（タイトル + URL）
//   - FetchedDocument:  記事ページの取得結果（本文・HTML・公開日・要約）
//   - ArticleRecord:    キーワードにマッチした記事の出力行
//   - UnresolvedRecord: アクセス不可 / マッチしなかった記事の出力行
//   - Result:           1回の実行結果（上記2種類のテーブル）
//
// 【日付の扱い】
//   - 日付は *time.Time で保持し、nil は「不明」を意味する
//   - 出力時に nil は "Unknown"、イベント日付なしは "Not Mentioned" になる
//
// =============================================================================
package pipeline

import (
	"strings"
	"time"
)

// 出力用の固定文字列
const (
	UnknownDate      = "Unknown"
	NotMentioned     = "Not Mentioned"
	NoSummary        = "No summary available."
	DateLayout       = "2006-01-02"
	summaryFallbackN = 500
)

// -----------------------------------------------------------------------------
// SearchHit - 検索結果
// -----------------------------------------------------------------------------
//
// Paginatorが生成する。1回のページング実行の中ではURLが一意になる。
type SearchHit struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// -----------------------------------------------------------------------------
// FetchedDocument - 記事ページの取得結果
// -----------------------------------------------------------------------------
//
// 全フィールドが任意（部分的な失敗は通常の結果）。
// RawMarkup は日付解決のためだけに保持し、パッケージ外には公開しない。
//
// 【不変条件】
//   - FullText が空なら Summary も空
//   - FullText が空でも PublishDate は存在しうる
type FetchedDocument struct {
	FullText    string
	PublishDate *time.Time
	Summary     string

	rawMarkup string
}

// Unresolvable は本文・日付・要約のいずれも取得できなかったかを返す
func (d FetchedDocument) Unresolvable() bool {
	return d.FullText == "" && d.PublishDate == nil && d.Summary == ""
}

// -----------------------------------------------------------------------------
// ArticleRecord - マッチした記事（出力テーブル1）
// -----------------------------------------------------------------------------
//
// 列の順序は ArticleColumns と一致させること（XLSX・表示で使用）。
type ArticleRecord struct {
	Title            string   `json:"title"`
	URL              string   `json:"url"`
	PublishedDate    string   `json:"publishedDate"`
	EventDate        string   `json:"eventDate"`
	LeadersMentioned string   `json:"leadersMentioned"`
	Category         string   `json:"category"`
	NamedEntities    []string `json:"namedEntities"`
	Summary          string   `json:"summary"`
}

// ArticleColumns はArticleRecordの列ラベル
var ArticleColumns = []string{
	"Title", "URL", "Published Date", "Event Date",
	"Leader Mentioned", "Category", "Named Entities", "Summary",
}

// Row はArticleColumnsの順で値を返す
func (r ArticleRecord) Row() []string {
	return []string{
		r.Title,
		r.URL,
		r.PublishedDate,
		r.EventDate,
		r.LeadersMentioned,
		r.Category,
		strings.Join(r.NamedEntities, ", "),
		r.Summary,
	}
}

// -----------------------------------------------------------------------------
// UnresolvedRecord - アクセス不可・非マッチ記事（出力テーブル2）
// -----------------------------------------------------------------------------
type UnresolvedRecord struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	PublishedDate string `json:"publishedDate"`
}

// UnresolvedColumns はUnresolvedRecordの列ラベル
var UnresolvedColumns = []string{"Title", "URL", "Published Date"}

// Row はUnresolvedColumnsの順で値を返す
func (r UnresolvedRecord) Row() []string {
	return []string{r.Title, r.URL, r.PublishedDate}
}

// -----------------------------------------------------------------------------
// Result - 1回の実行結果
// -----------------------------------------------------------------------------
type Result struct {
	RunID      string             `json:"runId"`
	Matched    []ArticleRecord    `json:"matched"`
	Unresolved []UnresolvedRecord `json:"unresolved"`
}

// formatDate は日付を YYYY-MM-DD で返す。nil の場合は "Unknown"
func formatDate(t *time.Time) string {
	if t == nil {
		return UnknownDate
	}
	return t.Format(DateLayout)
}

// firstDate は最初の非nil日付を返す
func firstDate(dates ...*time.Time) *time.Time {
	for _, d := range dates {
		if d != nil {
			return d
		}
	}
	return nil
}
