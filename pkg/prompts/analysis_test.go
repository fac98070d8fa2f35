package prompts

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

func TestAnalysisSystemInstruction(t *testing.T) {
	instruction, err := AnalysisSystemInstruction()
	if err != nil {
		t.Fatalf("指示の生成に失敗しました: %v", err)
	}

	t.Run("シーン数の上下限が埋め込まれること", func(t *testing.T) {
		want := fmt.Sprintf("%d〜%d個のシーン", domain.MinScenes, domain.MaxScenes)
		if !strings.Contains(instruction, want) {
			t.Errorf("シーン数の指定 %q が含まれていません", want)
		}
	})

	t.Run("全出力フィールドが言及されること", func(t *testing.T) {
		for _, field := range []string{
			"character_visuals", "environment_visuals",
			"image_a_description", "image_b_description",
			"motion_prompt", "character_direction",
		} {
			if !strings.Contains(instruction, field) {
				t.Errorf("フィールド %q が指示に含まれていません", field)
			}
		}
	})
}
