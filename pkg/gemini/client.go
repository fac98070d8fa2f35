package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"google.golang.org/genai"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

const (
	// ImageSize1K は標準的な解像度の設定（1024x1024相当）です。
	ImageSize1K = "1K"
	// ImageSize2K は高解像度の設定（2048x2048相当）です。
	ImageSize2K = "2K"
	// ImageSize4K は超高解像度の設定（4096x4096相当）です。
	ImageSize4K = "4K"

	// defaultThinkingBudget は、5〜8シーンへの分解に十分な思考トークン量です。
	defaultThinkingBudget = int32(2048)

	defaultCacheExpiration = 5 * time.Minute
	cacheCleanupInterval   = 15 * time.Minute
	cacheKeyAnalysis       = "analysis:"
)

// ImageSize は生成画像の解像度セレクターです（1K / 2K / 4K）。
type ImageSize string

// ValidImageSize は、解像度指定が定義済みのいずれかであるかを判定します。
func ValidImageSize(s ImageSize) bool {
	switch s {
	case ImageSize1K, ImageSize2K, ImageSize4K:
		return true
	}
	return false
}

// Config は境界クライアントの初期化設定です。
type Config struct {
	APIKey     string
	TextModel  string
	ImageModel string
	// Temperature はテキスト解析の温度です。nil ならデフォルト 0.2 を使用します。
	Temperature *float32
}

// Client は、生成AIバックエンド（Gemini）との通信を一手に担う境界クライアントです。
// リトライもプロンプト構築も行いません。それらは上位レイヤーの方針なのだ。
type Client struct {
	genaiClient   *genai.Client
	textModel     string
	imageModel    string
	temperature   *float32
	analysisCache *cache.Cache
}

// NewClient は genai クライアントを初期化して境界クライアントを返します。
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey は必須です")
	}
	if cfg.TextModel == "" || cfg.ImageModel == "" {
		return nil, fmt.Errorf("TextModel と ImageModel は必須です")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai クライアントの初期化に失敗しました: %w", err)
	}

	temp := cfg.Temperature
	if temp == nil {
		temp = genai.Ptr(float32(0.2))
	}

	return &Client{
		genaiClient:   gc,
		textModel:     cfg.TextModel,
		imageModel:    cfg.ImageModel,
		temperature:   temp,
		analysisCache: cache.New(defaultCacheExpiration, cacheCleanupInterval),
	}, nil
}

// AnalyzeRequest は台本解析の1リクエストです。
type AnalyzeRequest struct {
	Script            string
	SystemInstruction string
	// ResponseSchema を指定すると、バックエンドに構造化JSON出力を強制します。
	ResponseSchema *genai.Schema
}

// Analyze は台本テキストを1回だけ解析に掛け、生のJSONテキストを返します。
// 空応答やスキーマ不一致の判定は呼び出し側（Analysis Client）の責務です。
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (string, error) {
	cacheKey := cacheKeyAnalysis + analysisCacheKey(c.textModel, req.Script)
	if val, ok := c.analysisCache.Get(cacheKey); ok {
		if raw, ok := val.(string); ok {
			return raw, nil
		}
	}

	config := &genai.GenerateContentConfig{
		Temperature:      c.temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.ResponseSchema,
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(defaultThinkingBudget),
		},
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.SystemInstruction)},
		}
	}

	contents := []*genai.Content{
		{Parts: []*genai.Part{genai.NewPartFromText(req.Script)}, Role: genai.RoleUser},
	}

	result, err := c.genaiClient.Models.GenerateContent(ctx, c.textModel, contents, config)
	if err != nil {
		return "", classifyError(err)
	}

	raw := collectText(result)
	if raw != "" {
		c.analysisCache.Set(cacheKey, raw, cache.DefaultExpiration)
	}
	return raw, nil
}

// ImageRequest は単一の画像生成要求です。
type ImageRequest struct {
	Prompt string
	// Reference は視覚的一貫性のための参照画像（正準キャラクター画像）です。省略可能です。
	Reference   *domain.ImageRef
	Size        ImageSize
	AspectRatio string
}

// GenerateImage は1回の生成リクエストを送り、応答中の最初のインライン画像を返します。
// 画像が1枚も含まれない場合は ErrNoImageProduced で失敗するのだ。
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*domain.ImageRef, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Reference != nil && len(req.Reference.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Reference.Data, req.Reference.MimeType))
	}

	config := &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{
			AspectRatio: req.AspectRatio,
			ImageSize:   string(req.Size),
		},
	}

	contents := []*genai.Content{
		{Parts: parts, Role: genai.RoleUser},
	}

	result, err := c.genaiClient.Models.GenerateContent(ctx, c.imageModel, contents, config)
	if err != nil {
		return nil, classifyError(err)
	}

	return firstInlineImage(result)
}

// collectText は応答の全テキストパートを連結して返します。
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

// firstInlineImage は応答を走査し、最初に見つかったインライン画像を返します。
func firstInlineImage(resp *genai.GenerateContentResponse) (*domain.ImageRef, error) {
	if resp == nil {
		return nil, ErrNoImageProduced
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &domain.ImageRef{
					Data:     part.InlineData.Data,
					MimeType: part.InlineData.MIMEType,
				}, nil
			}
		}
	}
	return nil, ErrNoImageProduced
}

// analysisCacheKey は台本とモデル名から決定論的なキャッシュキーを生成します。
func analysisCacheKey(model, script string) string {
	hash := sha256.Sum256([]byte(model + "\x00" + script))
	return hex.EncodeToString(hash[:])
}
