// =============================================================================
// email.go - 実行レポートのメール送信
// =============================================================================
//
// 1回の実行結果（マッチした記事とアクセスできなかった記事）を
// プレーンテキストのメールとしてSMTPで送信します。
//
// 【必要な環境変数】
//
//	EMAIL_FROM     - 送信元メールアドレス（Gmail）
//	EMAIL_PASSWORD - Gmailアプリパスワード（通常のパスワードではない）
//	EMAIL_TO       - 送信先メールアドレス（カンマ区切りで複数可）
//
// 【リトライ】送信のみ指数バックオフ（2秒 → 4秒）で最大3回試行する。
// 検索・記事取得はリトライしない。
//
// =============================================================================
package pipeline

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// EmailConfig はSMTP送信の設定を保持する
type EmailConfig struct {
	From     string
	Password string
	To       []string
	SMTPHost string
	SMTPPort string
}

// EmailSender は実行レポートを送信する
type EmailSender struct {
	config EmailConfig

	// sendFunc はテストで差し替える
	sendFunc   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	maxRetries int
	backoff    time.Duration
}

// NewEmailSender はGmail SMTP用のEmailSenderを生成する
func NewEmailSender(from, password, to string) (*EmailSender, error) {
	if from == "" {
		return nil, fmt.Errorf("EMAIL_FROM is required")
	}
	if password == "" {
		return nil, fmt.Errorf("EMAIL_PASSWORD is required (use Gmail App Password)")
	}
	toList := ParseList(to)
	if len(toList) == 0 {
		return nil, fmt.Errorf("EMAIL_TO is required")
	}

	return &EmailSender{
		config: EmailConfig{
			From:     from,
			Password: password,
			To:       toList,
			SMTPHost: "smtp.gmail.com",
			SMTPPort: "587",
		},
		sendFunc:   smtp.SendMail,
		maxRetries: 3,
		backoff:    2 * time.Second,
	}, nil
}

// SendRunReport は実行結果のレポートを送信する
func (es *EmailSender) SendRunReport(ctx context.Context, keywords []string, res *Result) error {
	subject := fmt.Sprintf("Media Tracker - %s (%d relevant, %d inaccessible)",
		time.Now().Format(DateLayout), len(res.Matched), len(res.Unresolved))
	body := buildReportBody(keywords, res)
	return es.sendWithRetry(ctx, es.buildMessage(subject, body))
}

// buildReportBody はレポート本文を生成する
//
// 【出力フォーマット】
//
//	Media Tracker Report
//	Keywords: OMG India, Omnicom Media Group
//	Found 2 relevant articles
//
//	[1] Title
//	    URL: https://...
//	    Published: 2024-03-05 | Category: Press Release
//	    Leaders: Jane Doe
//	    Summary...
func buildReportBody(keywords []string, res *Result) string {
	var sb strings.Builder

	sb.WriteString("Media Tracker Report\n")
	fmt.Fprintf(&sb, "Run: %s\n", res.RunID)
	fmt.Fprintf(&sb, "Keywords: %s\n\n", strings.Join(keywords, ", "))

	sb.WriteString("========================================\n")
	fmt.Fprintf(&sb, "Found %d relevant articles\n", len(res.Matched))
	sb.WriteString("========================================\n\n")
	for i, r := range res.Matched {
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, r.Title)
		fmt.Fprintf(&sb, "    URL: %s\n", r.URL)
		fmt.Fprintf(&sb, "    Published: %s | Event: %s | Category: %s\n", r.PublishedDate, r.EventDate, r.Category)
		fmt.Fprintf(&sb, "    Leaders: %s\n", r.LeadersMentioned)
		fmt.Fprintf(&sb, "    %s\n\n", truncateString(r.Summary, 300))
	}

	sb.WriteString("========================================\n")
	fmt.Fprintf(&sb, "%d articles could not be accessed\n", len(res.Unresolved))
	sb.WriteString("========================================\n\n")
	for _, r := range res.Unresolved {
		fmt.Fprintf(&sb, "- %s (%s)\n  %s\n", r.Title, r.PublishedDate, r.URL)
	}

	return sb.String()
}

// buildMessage はRFC 5322形式のメッセージを構築する（ヘッダーと本文は空行で区切る）
func (es *EmailSender) buildMessage(subject, body string) []byte {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", es.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(es.config.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return []byte(msg.String())
}

func (es *EmailSender) sendWithRetry(ctx context.Context, msg []byte) error {
	var lastErr error
	wait := es.backoff
	for i := 0; i < es.maxRetries; i++ {
		if i > 0 {
			infof("retrying email send in %v...", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}

		err := es.send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		warnf("email send failed (attempt %d/%d): %v", i+1, es.maxRetries, err)
	}
	errorf("email: giving up after %d attempts", es.maxRetries)
	return fmt.Errorf("failed to send email after %d attempts: %w", es.maxRetries, lastErr)
}

func (es *EmailSender) send(msg []byte) error {
	auth := smtp.PlainAuth("", es.config.From, es.config.Password, es.config.SMTPHost)
	addr := es.config.SMTPHost + ":" + es.config.SMTPPort
	if err := es.sendFunc(addr, auth, es.config.From, es.config.To, msg); err != nil {
		return fmt.Errorf("SMTP send failed: %w", err)
	}
	return nil
}
