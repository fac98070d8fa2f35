package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

//go:embed analysis_instruction.md
var analysisInstructionTemplate string

// AnalysisSystemInstruction は、台本解析に使う固定のシステム指示を返します。
// シーン数の上下限はドメイン定数から埋め込まれるのだ。
func AnalysisSystemInstruction() (string, error) {
	tmpl, err := template.New("analysis").Parse(analysisInstructionTemplate)
	if err != nil {
		return "", fmt.Errorf("解析指示テンプレートの解析に失敗しました: %w", err)
	}

	var sb strings.Builder
	err = tmpl.Execute(&sb, struct {
		MinScenes int
		MaxScenes int
	}{
		MinScenes: domain.MinScenes,
		MaxScenes: domain.MaxScenes,
	})
	if err != nil {
		return "", fmt.Errorf("解析指示テンプレートの展開に失敗しました: %w", err)
	}
	return sb.String(), nil
}
