package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"

	"github.com/shouni/go-storyboard-kit/pkg/gemini"
)

// デフォルト値の定義なのだ
const (
	DefaultModel       = "gemini-3-flash-preview"
	DefaultImageModel  = "gemini-3-pro-image-preview"
	DefaultHTTPTimeout = 30 * time.Second
	DefaultOutputDir   = "output" // 成果物（ドキュメント・画像・アーカイブ）の保存先なのだ
	DefaultImageSize   = string(gemini.ImageSize1K)
	DefaultAspectRatio = "16:9"
	DefaultRateLimit   = 12 // 1分あたりの画像生成リクエスト数
)

// Config はアプリケーション全体の環境設定（APIキーやモデル設定）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string
	StyleTemplate    string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	return &Config{
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:      envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		StyleTemplate:    envutil.GetEnv("STYLE_TEMPLATE", ""),
	}
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// ソース入力関連
	ScriptURL  string // --script-url
	ScriptFile string // --script-file

	// 生成結果の出力設定
	OutputDir   string // --output-dir
	WithArchive bool   // --archive

	// 画像生成関連
	ImageSize   string // --size: 1K / 2K / 4K
	AspectRatio string // --aspect-ratio

	// AI挙動設定
	AIModel    string // --model: テキスト解析用のGeminiモデル
	ImageModel string // --image-model: 画像生成用のGeminiモデル

	// 実行制御
	RateLimit   int           // --rate-limit: 1分あたりの生成リクエスト数
	HTTPTimeout time.Duration // --http-timeout
}

// Source は優先順位（URL → ファイル）に従って台本ソースを返すのだ。
func (o GenerateOptions) Source() string {
	if o.ScriptURL != "" {
		return o.ScriptURL
	}
	return o.ScriptFile
}
