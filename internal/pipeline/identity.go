// =============================================================================
// identity.go - クライアント識別子と待機ポリシー
// =============================================================================
//
// 検索サービスにブロックされにくくするため、リクエストごとにUser-Agentを
// ランダムに選び、ページ間にランダムな待機を挟みます。
//
// どちらも非決定的なので、テストでは固定のポリシーを注入します。
//
// =============================================================================
package pipeline

import (
	"context"
	"math/rand/v2"
	"time"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)",
	"Mozilla/5.0 (X11; Linux x86_64)",
}

// IdentityPolicy はリクエストごとのUser-Agentを決める
type IdentityPolicy interface {
	UserAgent() string
}

// DelayPolicy はページ間の待機を行う
type DelayPolicy interface {
	Wait(ctx context.Context, r DelayRange)
}

// DelayRange は待機時間の範囲 [Min, Max]
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

// RandomIdentity はUser-Agentプールから一様に選ぶ
type RandomIdentity struct{}

func (RandomIdentity) UserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}

// FixedIdentity は常に同じUser-Agentを返す
type FixedIdentity string

func (f FixedIdentity) UserAgent() string { return string(f) }

// RandomDelay は [Min, Max] から一様に選んだ時間だけブロックする
type RandomDelay struct{}

func (RandomDelay) Wait(ctx context.Context, r DelayRange) {
	d := r.Min
	if span := r.Max - r.Min; span > 0 {
		d += time.Duration(rand.Int64N(int64(span) + 1))
	}
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// NoDelay は待機しない
type NoDelay struct{}

func (NoDelay) Wait(context.Context, DelayRange) {}
