package gemini

import (
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// ErrNoImageProduced は、生成呼び出しが利用可能な画像を1枚も返さなかったことを示します。
// リトライラッパーによって自動回復される、シーン局所のエラーなのだ。
var ErrNoImageProduced = errors.New("応答に画像データが含まれていません")

// Kind は、バックエンド境界で分類されたエラー種別です。
// フリーテキストのメッセージ照合ではなく、APIの構造化フィールドから判定します。
type Kind int

const (
	KindUnknown Kind = iota
	// KindAuthorization は forbidden / entitlement 系の失敗です。パイプライン全体を中断させる唯一の種別なのだ。
	KindAuthorization
	// KindRateLimited はクォータ・流量制限による一時的な失敗です。
	KindRateLimited
	// KindInvalidRequest はリクエスト自体の不備です。
	KindInvalidRequest
)

// String は種別の表示名を返します。
func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// BackendError は、バックエンドAPIのエラーに構造化された種別を付与したものです。
type BackendError struct {
	Kind Kind
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error (%s): %v", e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// classifyError は genai の APIError をステータスコードで分類し、BackendError にラップします。
// 401/403 は認可失敗、404 はエンタイトルメント不在（モデル未許可等）として同様に扱うのだ。
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403, 404:
			return &BackendError{Kind: KindAuthorization, Err: err}
		case 429:
			return &BackendError{Kind: KindRateLimited, Err: err}
		case 400:
			return &BackendError{Kind: KindInvalidRequest, Err: err}
		}
	}
	return &BackendError{Kind: KindUnknown, Err: err}
}

// IsAuthorization は、エラーが認可系の失敗に分類されているかを返します。
func IsAuthorization(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Kind == KindAuthorization
}

// IsNoImageProduced は、生成呼び出しが画像を返さなかった失敗かを返します。
func IsNoImageProduced(err error) bool {
	return errors.Is(err, ErrNoImageProduced)
}
