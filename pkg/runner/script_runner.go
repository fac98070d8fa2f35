// Package runner は、台本解析・キャラクター設計・書き出しの各ユースケースを
// 実行単位として束ねるレイヤーです。依存はすべてインターフェースで注入されます。
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"google.golang.org/genai"

	"github.com/shouni/go-http-kit/httpkit"
	"github.com/shouni/go-remote-io/remoteio"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
)

// AnalysisErrorKind は、台本解析の失敗分類です。
type AnalysisErrorKind int

const (
	// AnalysisEmptyResponse はバックエンドが空の応答を返したことを示します。
	AnalysisEmptyResponse AnalysisErrorKind = iota
	// AnalysisMalformedPayload は応答が期待スキーマに適合しなかったことを示します。
	AnalysisMalformedPayload
)

// String は分類の表示名を返します。
func (k AnalysisErrorKind) String() string {
	if k == AnalysisEmptyResponse {
		return "empty_response"
	}
	return "malformed_payload"
}

// AnalysisError は、台本解析の失敗を「空応答」と「不正ペイロード」に区別して表します。
type AnalysisError struct {
	Kind AnalysisErrorKind
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("台本解析に失敗しました (%s): %v", e.Kind, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// jsonBlockRegex はコードフェンスに包まれたJSONを取り出します。
// ResponseSchema 指定時は生JSONが返るはずですが、フェンス混入にも耐えるのだ。
var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")

// Analyzer はテキスト解析バックエンドへのインターフェースです。
type Analyzer interface {
	Analyze(ctx context.Context, req gemini.AnalyzeRequest) (string, error)
}

// ScriptRunner は、台本テキストを取得して StoryboardPlan へ変換する解析クライアントです。
// リトライは行いません。失敗は即座に呼び出し側へ表面化させるのだ。
type ScriptRunner struct {
	analyzer          Analyzer
	reader            remoteio.InputReader
	httpClient        httpkit.HTTPClient
	systemInstruction string
}

// NewScriptRunner は依存関係を注入して解析クライアントを生成します。
func NewScriptRunner(
	analyzer Analyzer,
	reader remoteio.InputReader,
	httpClient httpkit.HTTPClient,
	systemInstruction string,
) *ScriptRunner {
	return &ScriptRunner{
		analyzer:          analyzer,
		reader:            reader,
		httpClient:        httpClient,
		systemInstruction: systemInstruction,
	}
}

// Run は台本ソース（ローカルパス・gs://・http(s) URL）を読み込み、解析に掛けます。
func (sr *ScriptRunner) Run(ctx context.Context, source string) (domain.StoryboardPlan, error) {
	script, err := sr.loadScript(ctx, source)
	if err != nil {
		return domain.StoryboardPlan{}, err
	}
	return sr.Analyze(ctx, script)
}

// Analyze は台本テキストを1回だけ解析に掛け、スキーマ検証済みの計画を返します。
func (sr *ScriptRunner) Analyze(ctx context.Context, script string) (domain.StoryboardPlan, error) {
	script = strings.TrimSpace(script)
	if script == "" {
		return domain.StoryboardPlan{}, fmt.Errorf("台本テキストが空です")
	}

	slog.InfoContext(ctx, "台本を解析します", "script_length", len(script))

	raw, err := sr.analyzer.Analyze(ctx, gemini.AnalyzeRequest{
		Script:            script,
		SystemInstruction: sr.systemInstruction,
		ResponseSchema:    planSchema(),
	})
	if err != nil {
		return domain.StoryboardPlan{}, fmt.Errorf("解析リクエストに失敗しました: %w", err)
	}

	plan, err := parsePlan(raw)
	if err != nil {
		return domain.StoryboardPlan{}, err
	}

	slog.InfoContext(ctx, "台本解析が完了しました", "title", plan.Title, "scene_count", len(plan.Scenes))
	return plan, nil
}

// loadScript は台本ソースの種別を判定して本文を取得します。
func (sr *ScriptRunner) loadScript(ctx context.Context, source string) (string, error) {
	if source == "" {
		return "", fmt.Errorf("台本ソースが指定されていません")
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		body, err := sr.httpClient.FetchBytes(ctx, source)
		if err != nil {
			return "", fmt.Errorf("台本URLの取得に失敗しました: %w", err)
		}
		return string(body), nil
	}

	rc, err := sr.reader.Open(ctx, source)
	if err != nil {
		return "", fmt.Errorf("台本ファイルのオープンに失敗しました: %w", err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("台本ファイルの読み込みに失敗しました: %w", err)
	}
	return string(body), nil
}

// parsePlan は解析応答を検証付きで StoryboardPlan に変換します。
// 空応答と不正ペイロードは AnalysisError の Kind で区別されます。
func parsePlan(raw string) (domain.StoryboardPlan, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.StoryboardPlan{}, &AnalysisError{
			Kind: AnalysisEmptyResponse,
			Err:  fmt.Errorf("バックエンドが空の応答を返しました"),
		}
	}

	rawJSON := raw
	if matches := jsonBlockRegex.FindStringSubmatch(raw); len(matches) > 1 {
		rawJSON = matches[1]
	}

	var plan domain.StoryboardPlan
	if err := json.Unmarshal([]byte(rawJSON), &plan); err != nil {
		return domain.StoryboardPlan{}, &AnalysisError{
			Kind: AnalysisMalformedPayload,
			Err:  fmt.Errorf("応答JSONの解析に失敗しました (応答抜粋: %q): %w", truncateString(raw, 200), err),
		}
	}

	if err := plan.Validate(); err != nil {
		return domain.StoryboardPlan{}, &AnalysisError{
			Kind: AnalysisMalformedPayload,
			Err:  fmt.Errorf("応答が期待する構造を満たしていません: %w", err),
		}
	}
	return plan, nil
}

// planSchema は、バックエンドに強制する構造化出力スキーマです。
// domain.StoryboardPlan の JSON 形状と1対1で対応します。
func planSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {Type: genai.TypeString},
			"consistency_bible": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"character_visuals":   {Type: genai.TypeString},
					"environment_visuals": {Type: genai.TypeString},
				},
				Required: []string{"character_visuals", "environment_visuals"},
			},
			"scenes": {
				Type:     genai.TypeArray,
				MinItems: genai.Ptr(int64(domain.MinScenes)),
				MaxItems: genai.Ptr(int64(domain.MaxScenes)),
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":                  {Type: genai.TypeInteger},
						"title":               {Type: genai.TypeString},
						"context":             {Type: genai.TypeString},
						"image_a_description": {Type: genai.TypeString},
						"image_b_description": {Type: genai.TypeString},
						"motion_prompt":       {Type: genai.TypeString},
						"character_direction": {
							Type: genai.TypeString,
							Enum: []string{"left", "right", "forward", "back"},
						},
						"character_expression": {Type: genai.TypeString},
						"character_pose":       {Type: genai.TypeString},
					},
					Required: []string{
						"id", "title", "image_a_description", "image_b_description",
						"motion_prompt", "character_direction",
					},
				},
			},
		},
		Required: []string{"title", "consistency_bible", "scenes"},
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
