package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

func validPlanJSON(t *testing.T) string {
	t.Helper()
	scenes := make([]map[string]any, domain.MinScenes)
	for i := range scenes {
		scenes[i] = map[string]any{
			"id":                  i + 1,
			"title":               fmt.Sprintf("シーン%d", i+1),
			"image_a_description": "港に立つ少女",
			"image_b_description": "振り返る少女",
			"motion_prompt":       "ゆっくりパン",
			"character_direction": "forward",
		}
	}
	raw, err := json.Marshal(map[string]any{
		"title": "港町の物語",
		"consistency_bible": map[string]any{
			"character_visuals":   "黒髪おさげの少女、赤いコート",
			"environment_visuals": "霧の港町、石畳",
		},
		"scenes": scenes,
	})
	if err != nil {
		t.Fatalf("テストデータの構築に失敗しました: %v", err)
	}
	return string(raw)
}

func TestParsePlan(t *testing.T) {
	t.Run("正常なJSONを計画に変換できる", func(t *testing.T) {
		plan, err := parsePlan(validPlanJSON(t))
		if err != nil {
			t.Fatalf("解析に失敗しました: %v", err)
		}
		if plan.Title != "港町の物語" {
			t.Errorf("タイトルが不正です: %q", plan.Title)
		}
		if len(plan.Scenes) != domain.MinScenes {
			t.Errorf("シーン数が不正です: %d", len(plan.Scenes))
		}
	})

	t.Run("コードフェンス付きJSONも受理する", func(t *testing.T) {
		fenced := "```json\n" + validPlanJSON(t) + "\n```"
		if _, err := parsePlan(fenced); err != nil {
			t.Errorf("フェンス付きJSONの解析に失敗しました: %v", err)
		}
	})

	t.Run("空応答は empty_response に分類される", func(t *testing.T) {
		_, err := parsePlan("   ")
		var analysisErr *AnalysisError
		if !errors.As(err, &analysisErr) {
			t.Fatalf("AnalysisError が返るべきです: %v", err)
		}
		if analysisErr.Kind != AnalysisEmptyResponse {
			t.Errorf("分類が不正です: %v", analysisErr.Kind)
		}
	})

	t.Run("壊れたJSONは malformed_payload に分類される", func(t *testing.T) {
		_, err := parsePlan(`{"title": "壊れた`)
		var analysisErr *AnalysisError
		if !errors.As(err, &analysisErr) {
			t.Fatalf("AnalysisError が返るべきです: %v", err)
		}
		if analysisErr.Kind != AnalysisMalformedPayload {
			t.Errorf("分類が不正です: %v", analysisErr.Kind)
		}
	})

	t.Run("スキーマ違反も malformed_payload に分類される", func(t *testing.T) {
		// シーンが足りないJSON
		var payload map[string]any
		if err := json.Unmarshal([]byte(validPlanJSON(t)), &payload); err != nil {
			t.Fatal(err)
		}
		payload["scenes"] = payload["scenes"].([]any)[:2]
		raw, _ := json.Marshal(payload)

		_, err := parsePlan(string(raw))
		var analysisErr *AnalysisError
		if !errors.As(err, &analysisErr) {
			t.Fatalf("AnalysisError が返るべきです: %v", err)
		}
		if analysisErr.Kind != AnalysisMalformedPayload {
			t.Errorf("分類が不正です: %v", analysisErr.Kind)
		}
	})
}

func TestPlanSchema(t *testing.T) {
	schema := planSchema()
	if schema == nil {
		t.Fatal("スキーマが nil です")
	}

	scenes, ok := schema.Properties["scenes"]
	if !ok {
		t.Fatal("scenes プロパティが定義されていません")
	}
	if scenes.MinItems == nil || *scenes.MinItems != int64(domain.MinScenes) {
		t.Error("シーン数の下限がスキーマに反映されていません")
	}
	if scenes.MaxItems == nil || *scenes.MaxItems != int64(domain.MaxScenes) {
		t.Error("シーン数の上限がスキーマに反映されていません")
	}

	direction, ok := scenes.Items.Properties["character_direction"]
	if !ok {
		t.Fatal("character_direction プロパティが定義されていません")
	}
	if len(direction.Enum) != 4 {
		t.Errorf("方向の列挙値が4方向ではありません: %v", direction.Enum)
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("short", 10); got != "short" {
		t.Errorf("短い文字列が変更されています: %q", got)
	}
	if got := truncateString("0123456789abc", 10); got != "0123456789..." {
		t.Errorf("切り詰め結果が不正です: %q", got)
	}
}
