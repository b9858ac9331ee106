// =============================================================================
// search.go - ニュース検索のページング
// =============================================================================
//
// このファイルはニュース検索エンドポイントを1ページずつ取得し、
// 結果リンクを重複なしで蓄積するPaginatorを提供します。
//
// 【処理の流れ】
//
//	page=0 から開始し、offset = page × PageSize でクエリを組み立てる
//	  ↓
//	ランダムなUser-Agentで1リクエスト → アンカーを抽出
//	  ↓
//	以下のいずれかで終了（エラーにはしない）:
//	  (a) 0件のページ  (b) maxPages に到達  (c) リクエスト失敗
//
// 【重要】途中で終了しても、それまでに集めた結果をそのまま返す
//
// =============================================================================
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// 検索バックエンドの種類
const (
	BackendHTML = "html"
	BackendRSS  = "rss"
)

// SearchBackend はページURLの組み立てとレスポンスの解析を担当する
type SearchBackend interface {
	PageURL(query string, offset int) (string, error)
	ParseHits(body io.Reader, pageURL string) ([]SearchHit, error)
}

// =============================================================================
// HTML バックエンド
// =============================================================================

// DefaultHitSelector は検索結果のタイトルアンカー
const DefaultHitSelector = "a.title"

// HTMLBackend は検索結果HTMLからタイトルクラス付きアンカーを抽出する
type HTMLBackend struct {
	Endpoint string
	Selector string
}

func (b HTMLBackend) PageURL(query string, offset int) (string, error) {
	return buildSearchURL(b.Endpoint, query, offset, nil)
}

func (b HTMLBackend) ParseHits(body io.Reader, pageURL string) ([]SearchHit, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML failed: %w", err)
	}
	sel := b.Selector
	if sel == "" {
		sel = DefaultHitSelector
	}

	var hits []SearchHit
	doc.Find(sel).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		hits = append(hits, SearchHit{
			Title: normalizeWhitespace(a.Text()),
			URL:   resolveURL(pageURL, href),
		})
	})
	return hits, nil
}

// buildSearchURL は検索テキストとoffsetをエンドポイントに付与する
func buildSearchURL(endpoint, query string, offset int, extra url.Values) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse search endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("first", strconv.Itoa(offset))
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// =============================================================================
// Paginator
// =============================================================================

// Paginator は検索結果をページ単位で取得する
type Paginator struct {
	Backend  SearchBackend
	Client   *http.Client
	Identity IdentityPolicy
	Delay    DelayPolicy
	PageSize int
	Timeout  time.Duration
}

// NewPaginator は設定からPaginatorを生成する
func NewPaginator(cfg SearchConfig, client *http.Client) *Paginator {
	var backend SearchBackend = HTMLBackend{Endpoint: cfg.Endpoint}
	if cfg.Backend == BackendRSS {
		backend = RSSBackend{Endpoint: cfg.Endpoint}
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Paginator{
		Backend:  backend,
		Client:   client,
		Identity: RandomIdentity{},
		Delay:    RandomDelay{},
		PageSize: cfg.PageSize,
		Timeout:  cfg.Timeout,
	}
}

// Search はqueryの検索結果を最大maxPagesページ分集める
//
// 同じ実行の中で既に出現したURLは捨てる（page N で見たURLが page N+k に
// 再出現しても1件のみ）。失敗は結果の終端として扱い、エラーは返さない。
func (p *Paginator) Search(ctx context.Context, query string, maxPages int, delay DelayRange) []SearchHit {
	var out []SearchHit
	seen := map[string]bool{}

	for page := 0; page < maxPages; page++ {
		if page > 0 {
			p.Delay.Wait(ctx, delay)
		}
		if err := ctx.Err(); err != nil {
			warnf("search %q: stopped at page %d: %v", query, page, err)
			break
		}

		hits, err := p.fetchPage(ctx, query, page*p.PageSize)
		if err != nil {
			warnf("search %q: page %d failed, ending pagination: %v", query, page, err)
			break
		}
		if len(hits) == 0 {
			debugf("search %q: page %d is empty", query, page)
			break
		}

		for _, h := range hits {
			if h.URL == "" || seen[h.URL] {
				continue
			}
			seen[h.URL] = true
			out = append(out, h)
		}
	}

	infof("search %q: %d unique hits", query, len(out))
	return out
}

func (p *Paginator) fetchPage(ctx context.Context, query string, offset int) ([]SearchHit, error) {
	pageURL, err := p.Backend.PageURL(query, offset)
	if err != nil {
		return nil, err
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	resp, err := httpGet(ctx, p.Client, pageURL, p.Identity.UserAgent())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	hits, err := p.Backend.ParseHits(resp.Body, pageURL)
	if err != nil {
		return nil, err
	}
	for i := range hits {
		hits[i].URL = strings.TrimSpace(hits[i].URL)
	}
	return hits, nil
}
