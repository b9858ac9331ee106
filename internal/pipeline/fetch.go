// =============================================================================
// fetch.go - 記事本文の取得
// =============================================================================
//
// 検索結果の記事URLから本文・要約・公開日を取得します。
//
// 【2段階の取得】
//
//	1. プライマリ: ダウンロード → 文字コード変換 → readabilityで本文抽出
//	               （本文・要約・公開日を得る）
//	     ↓ どの段階で失敗しても
//	2. フォールバック: 汎用User-Agentで単純GET → <p> のテキストを連結
//	               （要約・公開日なし。PDFならページテキストを抽出）
//	     ↓ それも失敗したら
//	3. 全フィールド空のドキュメント（アクセス不可として扱う）
//
// 公開日が得られなかった場合は、取得したHTML・URL・本文で日付カスケードを実行する。
//
// 【不変条件】本文が空なら要約も空
//
// =============================================================================
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"
)

// ErrNoContent は本文を抽出できなかったことを表す
var ErrNoContent = errors.New("no extractable content")

// Fetcher は記事ページの取得を担当する
type Fetcher struct {
	Client       *http.Client
	Identity     IdentityPolicy
	Dates        *DateResolver
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

// NewFetcher は設定からFetcherを生成する
func NewFetcher(cfg FetchConfig, client *http.Client, dates *DateResolver) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if dates == nil {
		dates = NewDateResolver(nil)
	}
	return &Fetcher{
		Client:       client,
		Identity:     RandomIdentity{},
		Dates:        dates,
		Timeout:      cfg.Timeout,
		UserAgent:    cfg.UserAgent,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Fetch は記事URLを取得し、FetchedDocumentを返す
//
// エラーは返さない。どちらの取得方法も失敗した場合は
// 本文・公開日・要約がすべて空のドキュメントを返す（URL日付は呼び出し側で扱う）。
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) FetchedDocument {
	doc, err := f.fetchPrimary(ctx, rawURL)
	if err != nil {
		debugf("fetch: primary tier failed for %s: %v", rawURL, err)
		doc, err = f.fetchFallback(ctx, rawURL)
		if err != nil {
			warnf("fetch: %s could not be accessed: %v", rawURL, err)
			return FetchedDocument{}
		}
	}

	if doc.PublishDate == nil && f.Dates != nil {
		doc.PublishDate = f.Dates.Resolve(doc.rawMarkup, rawURL, doc.FullText)
	}
	if doc.FullText == "" {
		doc.Summary = ""
	}
	return doc
}

// =============================================================================
// プライマリ取得（readability）
// =============================================================================

func (f *Fetcher) fetchPrimary(ctx context.Context, rawURL string) (FetchedDocument, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return FetchedDocument{}, fmt.Errorf("parse url: %w", err)
	}

	body, contentType, err := f.download(ctx, rawURL, f.Identity.UserAgent())
	if err != nil {
		return FetchedDocument{}, err
	}
	if isPDF(contentType, rawURL) {
		return FetchedDocument{}, fmt.Errorf("%w: pdf body is handled by the fallback tier", ErrNoContent)
	}

	markup, err := decodeBody(body, contentType)
	if err != nil {
		return FetchedDocument{}, err
	}

	article, err := readability.FromReader(strings.NewReader(markup), pageURL)
	if err != nil {
		return FetchedDocument{}, fmt.Errorf("readability: %w", err)
	}

	doc := FetchedDocument{
		FullText:  cleanExtractedText(article.TextContent),
		Summary:   normalizeWhitespace(article.Excerpt),
		rawMarkup: markup,
	}
	if doc.FullText == "" {
		return FetchedDocument{}, ErrNoContent
	}
	if article.PublishedTime != nil && !article.PublishedTime.IsZero() {
		t := naive(*article.PublishedTime)
		doc.PublishDate = &t
	}
	return doc, nil
}

// =============================================================================
// フォールバック取得（<p> の連結 / PDF）
// =============================================================================

func (f *Fetcher) fetchFallback(ctx context.Context, rawURL string) (FetchedDocument, error) {
	ua := f.UserAgent
	if ua == "" {
		ua = userAgents[0]
	}
	body, contentType, err := f.download(ctx, rawURL, ua)
	if err != nil {
		return FetchedDocument{}, err
	}

	if isPDF(contentType, rawURL) {
		text, err := extractTextFromPDF(body)
		if err != nil {
			return FetchedDocument{}, err
		}
		if text == "" {
			return FetchedDocument{}, ErrNoContent
		}
		return FetchedDocument{FullText: text}, nil
	}

	markup, err := decodeBody(body, contentType)
	if err != nil {
		return FetchedDocument{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return FetchedDocument{}, fmt.Errorf("parse HTML failed: %w", err)
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := strings.TrimSpace(p.Text()); t != "" {
			paragraphs = append(paragraphs, t)
		}
	})

	// 本文が空でもマークアップは日付カスケード用に残す
	return FetchedDocument{
		FullText:  strings.Join(paragraphs, "\n"),
		rawMarkup: markup,
	}, nil
}

// =============================================================================
// ヘルパー
// =============================================================================

// download はタイムアウト付きでボディを読み込む（MaxBodyBytesで打ち切り）
func (f *Fetcher) download(ctx context.Context, rawURL, userAgent string) ([]byte, string, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	resp, err := httpGet(ctx, f.Client, rawURL, userAgent)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if f.MaxBodyBytes > 0 {
		r = io.LimitReader(resp.Body, f.MaxBodyBytes)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// decodeBody はContent-Typeとmetaタグから文字コードを判定してUTF-8に変換する
func decodeBody(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", fmt.Errorf("charset: %w", err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("charset decode: %w", err)
	}
	return string(decoded), nil
}

func isPDF(contentType, rawURL string) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "application/pdf" {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}
