package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(maxAttempts int) Policy {
	return Policy{MaxAttempts: maxAttempts, Interval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("成功すれば1回で終わること", func(t *testing.T) {
		calls := 0
		result, err := Do(ctx, fastPolicy(3), func(context.Context) (string, error) {
			calls++
			return "ok", nil
		})
		if err != nil || result != "ok" {
			t.Fatalf("予期しない結果: %v, %v", result, err)
		}
		if calls != 1 {
			t.Errorf("期待値 1回, 実際の呼び出し回数 %d", calls)
		}
	})

	t.Run("最大回数まで試行し、最後のエラーがそのまま返ること", func(t *testing.T) {
		sentinel := errors.New("still failing")
		calls := 0
		_, err := Do(ctx, fastPolicy(3), func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 0, sentinel
		})
		if calls != 3 {
			t.Errorf("期待値 3回, 実際の呼び出し回数 %d", calls)
		}
		if !errors.Is(err, sentinel) {
			t.Errorf("最後のエラーが変質しています: %v", err)
		}
	})

	t.Run("途中で成功すれば残りの試行は行われないこと", func(t *testing.T) {
		calls := 0
		result, err := Do(ctx, fastPolicy(3), func(context.Context) (int, error) {
			calls++
			if calls == 2 {
				return 42, nil
			}
			return 0, errors.New("transient")
		})
		if err != nil || result != 42 {
			t.Fatalf("予期しない結果: %v, %v", result, err)
		}
		if calls != 2 {
			t.Errorf("期待値 2回, 実際の呼び出し回数 %d", calls)
		}
	})

	t.Run("Fatalエラーは即座に返り、再試行されないこと", func(t *testing.T) {
		fatalErr := errors.New("forbidden")
		calls := 0
		policy := fastPolicy(3).WithFatal(func(err error) bool {
			return errors.Is(err, fatalErr)
		})
		_, err := Do(ctx, policy, func(context.Context) (int, error) {
			calls++
			return 0, fatalErr
		})
		if calls != 1 {
			t.Errorf("Fatalエラー後に再試行されています: %d回", calls)
		}
		if !errors.Is(err, fatalErr) {
			t.Errorf("Fatalエラーが変質しています: %v", err)
		}
	})

	t.Run("コンテキストのキャンセルで待機が中断されること", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		policy := Policy{MaxAttempts: 3, Interval: time.Hour}
		calls := 0
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		_, err := Do(cancelCtx, policy, func(context.Context) (int, error) {
			calls++
			return 0, errors.New("transient")
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("キャンセルエラーが返っていません: %v", err)
		}
		if calls != 1 {
			t.Errorf("キャンセル後に再試行されています: %d回", calls)
		}
	})
}

func TestPolicy_Delay(t *testing.T) {
	t.Run("指数バックオフは上限で頭打ちになること", func(t *testing.T) {
		p := Exponential(5)
		expected := []time.Duration{
			1 * time.Second, // 2^0
			2 * time.Second, // 2^1
			4 * time.Second, // 2^2
			5 * time.Second, // min(8s, 5s)
		}
		for i, want := range expected {
			if got := p.delay(i + 1); got != want {
				t.Errorf("attempt %d: 期待値 %v, 実際の値 %v", i+1, want, got)
			}
		}
	})

	t.Run("線形バックオフは試行回数に比例すること", func(t *testing.T) {
		p := Linear(3)
		for attempt := 1; attempt <= 3; attempt++ {
			want := time.Duration(attempt) * time.Second
			if got := p.delay(attempt); got != want {
				t.Errorf("attempt %d: 期待値 %v, 実際の値 %v", attempt, want, got)
			}
		}
	})
}
