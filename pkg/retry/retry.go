// Package retry は、失敗しうる非同期操作に有界リトライを付与する汎用デコレーターです。
// 画像生成・三面図の各視点など、呼び出しサイトごとに試行回数を設定して使い回します。
package retry

import (
	"context"
	"time"
)

const (
	// DefaultInterval はバックオフの基準間隔です。
	DefaultInterval = 1 * time.Second
	// DefaultMaxInterval は指数バックオフの上限です。これ以上は待たないのだ。
	DefaultMaxInterval = 5 * time.Second
)

// Policy は1呼び出しサイト分のリトライ方針です。
type Policy struct {
	// MaxAttempts は初回を含む総試行回数です。
	MaxAttempts int
	// Interval はバックオフの基準間隔です。ゼロ値なら DefaultInterval を使用します。
	Interval time.Duration
	// MaxInterval は指数バックオフの上限です。ゼロ値なら DefaultMaxInterval を使用します。
	MaxInterval time.Duration
	// Linear を立てると、指数ではなく Interval × 試行回数 の線形バックオフになります。
	Linear bool
	// Fatal が true を返したエラーはリトライせず即座に返します（認可エラー等）。
	Fatal func(error) bool
}

// Exponential は、基準1秒・上限5秒の指数バックオフ方針を返します。
func Exponential(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Interval:    DefaultInterval,
		MaxInterval: DefaultMaxInterval,
	}
}

// Linear は、1秒 × 試行回数 の線形バックオフ方針を返します。
func Linear(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Interval:    DefaultInterval,
		Linear:      true,
	}
}

// WithFatal は、リトライを打ち切るべきエラーの判定関数を設定した方針のコピーを返します。
func (p Policy) WithFatal(fatal func(error) bool) Policy {
	p.Fatal = fatal
	return p
}

// delay は attempt 回目（1始まり）の失敗後に待つ時間を返します。
// 指数: min(interval * 2^(attempt-1), maxInterval)、線形: interval * attempt なのだ。
func (p Policy) delay(attempt int) time.Duration {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	if p.Linear {
		return interval * time.Duration(attempt)
	}

	maxInterval := p.MaxInterval
	if maxInterval <= 0 {
		maxInterval = DefaultMaxInterval
	}
	d := interval << (attempt - 1)
	if d > maxInterval {
		d = maxInterval
	}
	return d
}

// Do は operation を実行し、失敗したらバックオフを挟んで最大 MaxAttempts 回まで再試行します。
// 全試行が失敗した場合、最後のエラーをそのまま返します（種類を変えないのだ）。
func Do[T any](ctx context.Context, p Policy, operation func(context.Context) (T, error)) (T, error) {
	var zero T
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := operation(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if p.Fatal != nil && p.Fatal(err) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, lastErr
}
