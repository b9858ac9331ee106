// =============================================================================
// search_rss.go - RSS形式の検索バックエンド
// =============================================================================
//
// Bing Newsなどは format=rss を付けると同じ検索結果をRSSで返します。
// HTMLのマークアップ変更に影響されないため、-backend=rss で選択できます。
//
// 【注意】RSSのリンクはクリック計測用のリダイレクトURLになっていることがある
// → url パラメータに元記事のURLが入っていれば、そちらを採用する
//
// =============================================================================
package pipeline

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
)

// RSSBackend はRSS/Atomの検索結果を解析する
type RSSBackend struct {
	Endpoint string
}

func (b RSSBackend) PageURL(query string, offset int) (string, error) {
	return buildSearchURL(b.Endpoint, query, offset, url.Values{"format": {"rss"}})
}

func (b RSSBackend) ParseHits(body io.Reader, _ string) ([]SearchHit, error) {
	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, fmt.Errorf("RSS parse failed: %w", err)
	}

	hits := make([]SearchHit, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		hits = append(hits, SearchHit{
			Title: normalizeWhitespace(item.Title),
			URL:   unwrapRedirect(strings.TrimSpace(item.Link)),
		})
	}
	return hits, nil
}

// unwrapRedirect は url= パラメータに絶対URLを持つリダイレクトリンクを展開する
func unwrapRedirect(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	target := u.Query().Get("url")
	if target == "" {
		return link
	}
	t, err := url.Parse(target)
	if err != nil || (t.Scheme != "http" && t.Scheme != "https") {
		return link
	}
	return target
}
