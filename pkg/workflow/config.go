package workflow

import (
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/gemini"
)

// デフォルト値の定義なのだ
const (
	DefaultTextModel         = "gemini-3-flash-preview"
	DefaultImageModel        = "gemini-3-pro-image-preview"
	DefaultAspectRatio       = "16:9"
	DefaultImageSize         = gemini.ImageSize1K
	DefaultRequestsPerMinute = 12
	DefaultRequestTimeout    = 5 * time.Minute
	DefaultHTTPTimeout       = 30 * time.Second
)

// Config は Go Storyboard Kit の各 Runner を動作させるための基本設定なのだ。
type Config struct {
	// --- AI Model Settings ---
	GeminiAPIKey string
	TextModel    string
	ImageModel   string

	// --- Generation Settings ---
	StyleTemplate     string // 空なら prompts.DefaultStyleTemplate を使用
	Size              gemini.ImageSize
	AspectRatio       string
	RequestsPerMinute int

	// --- Timeout ---
	RequestTimeout time.Duration
}

// NewConfig はデフォルト値で初期化された Config を作成し、APIキーをセットして返すのだ。
func NewConfig(apiKey string) Config {
	cfg := DefaultConfig()
	cfg.GeminiAPIKey = apiKey
	return cfg
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数なのだ。
func DefaultConfig() Config {
	return Config{
		TextModel:         DefaultTextModel,
		ImageModel:        DefaultImageModel,
		Size:              DefaultImageSize,
		AspectRatio:       DefaultAspectRatio,
		RequestsPerMinute: DefaultRequestsPerMinute,
		RequestTimeout:    DefaultRequestTimeout,
	}
}
