// =============================================================================
// utils.go - ユーティリティ関数
// =============================================================================
//
// このファイルはシステム全体で使用する汎用的なヘルパー関数を提供します。
//
// 【このファイルで提供する機能】
//   - ログ出力: zapロガーの生成と debugf/infof/warnf/errorf
//   - HTTP操作: User-Agent付きGET、ステータスチェック
//   - JSON操作: ファイル書き出し
//   - 文字列操作: 空白正規化、重複削除、切り詰め、URL解決
//
// 【ログについて】
//
//	標準出力（stdout）は結果の出力に使うため、ログは標準エラー出力（stderr）に出す
//
// =============================================================================
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// -----------------------------------------------------------------------------
// ログ出力
// -----------------------------------------------------------------------------

var (
	logMu  sync.RWMutex
	logger = zap.NewNop().Sugar()
)

// NewLogger はstderrに出力するzapロガーを生成する
//
// 引数:
//
//	level:    debug | info | warn | error
//	encoding: console | json
func NewLogger(level, encoding string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	if encoding == "" {
		encoding = "console"
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeDuration = zapcore.StringDurationEncoder

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Encoding:         encoding,
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

// SetLogger はパッケージ全体で使うロガーを差し替える
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logMu.Lock()
	logger = l.Sugar()
	logMu.Unlock()
}

func log() *zap.SugaredLogger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

func debugf(format string, args ...any) { log().Debugf(format, args...) }

func infof(format string, args ...any) { log().Infof(format, args...) }

func warnf(format string, args ...any) { log().Warnf(format, args...) }

// errorf はエラーをログに出すだけで、処理は継続する
func errorf(format string, args ...any) { log().Errorf(format, args...) }

// -----------------------------------------------------------------------------
// HTTP操作関数
// -----------------------------------------------------------------------------

// newHTTPClient は検索と記事取得で共有するクライアントを生成する
//
// 同意ページなどでCookieを要求するサイトがあるため、Jarを持たせる。
// タイムアウトはリクエストごとにcontextで設定する。
func newHTTPClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Jar: jar}
}

// ErrUnexpectedStatus は2xx以外のレスポンスを表す
var ErrUnexpectedStatus = errors.New("unexpected status")

// httpGet はUser-Agent付きでGETリクエストを実行する
//
// 2xx以外はErrUnexpectedStatusを返す（その場合ボディはクローズ済み）。
// 成功時は呼び出し元でresp.Body.Close()を行う必要がある。
func httpGet(ctx context.Context, client *http.Client, u, userAgent string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %w: %s", u, ErrUnexpectedStatus, resp.Status)
	}
	return resp, nil
}

// -----------------------------------------------------------------------------
// JSON操作関数
// -----------------------------------------------------------------------------

// WriteJSONFile は任意のデータをJSON形式でファイルに保存する
//
// 【ファイル権限】0o644 = 所有者は読み書き可、他は読み取りのみ
func WriteJSONFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// -----------------------------------------------------------------------------
// 文字列操作関数
// -----------------------------------------------------------------------------

// normalizeWhitespace は連続する空白を単一スペースに正規化する
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// uniqStrings は文字列スライスから重複と空文字列を除去する（順序は保持）
func uniqStrings(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// truncateString は文字列をmaxLen文字（rune単位）に切り詰める
//
// 使用例:
//
//	truncateString("Hello World", 8)  // "Hello..."
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// resolveURL は相対URLを絶対URLに変換する（エラー時は空文字列）
func resolveURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// hostOf はURLのホスト名を小文字で返す（"www." は除去）
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// cleanExtractedText は goquery .Text() の出力を整理する
// タブ・連続空白・空行を除去する
func cleanExtractedText(raw string) string {
	lines := strings.Split(raw, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
