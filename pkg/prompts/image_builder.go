package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// Frame は1シーン内のフレーム種別（開始 or 終了）です。
type Frame string

const (
	FrameA Frame = "a"
	FrameB Frame = "b"
)

// BuildImagePrompt は、画風テンプレート・一貫性コンテキスト・個別描写を結合して
// 画像生成プロンプトを組み立てる純粋関数です。
// ネットワークも可変状態も持たず、同一入力に対してバイト単位で同一の出力を返します。
func BuildImagePrompt(styleTemplate string, bible domain.ConsistencyBible, description string, hasReference bool) string {
	sections := make([]string, 0, 4)
	sections = append(sections, styleTemplate)

	var consistency strings.Builder
	consistency.WriteString(consistencyHeader)
	consistency.WriteString("\n- CHARACTER: ")
	consistency.WriteString(bible.CharacterVisuals)
	consistency.WriteString("\n- ENVIRONMENT: ")
	consistency.WriteString(bible.EnvironmentVisuals)
	sections = append(sections, consistency.String())

	if hasReference {
		sections = append(sections, referenceNote)
	}

	sections = append(sections, sceneHeader+"\n"+description)

	return strings.Join(sections, "\n\n")
}

// BuildFrameDescription は、シーンのメタデータ（方向・表情・ポーズ・文脈）を
// フレーム記述に織り込んだ個別描写テキストを生成します。
func BuildFrameDescription(scene domain.Scene, frame Frame) string {
	desc := scene.ImageADescription
	if frame == FrameB {
		desc = scene.ImageBDescription
	}

	var sb strings.Builder
	sb.WriteString(desc)
	sb.WriteString(fmt.Sprintf("\n- CHARACTER FACING: %s", scene.CharacterDirection))
	if scene.CharacterExpression != "" {
		sb.WriteString(fmt.Sprintf("\n- EXPRESSION: %s", scene.CharacterExpression))
	}
	if scene.CharacterPose != "" {
		sb.WriteString(fmt.Sprintf("\n- POSE: %s", scene.CharacterPose))
	}
	if scene.Context != "" {
		sb.WriteString(fmt.Sprintf("\n- SCENE CONTEXT: %s", scene.Context))
	}
	return sb.String()
}

// BuildCharacterCreationPrompt は、正準キャラクター画像生成用のプロンプトを組み立てます。
// 参照画像なし・バイブルのキャラクター記述のみを種にするのだ。
func BuildCharacterCreationPrompt(styleTemplate, characterVisuals string) string {
	return strings.Join([]string{
		styleTemplate,
		fmt.Sprintf(characterCreationTemplate, characterVisuals),
	}, "\n\n")
}

// BuildReferenceViewPrompt は、三面図の1視点分のプロンプトを組み立てます。
func BuildReferenceViewPrompt(styleTemplate, characterVisuals string, view domain.ReferenceView) string {
	descriptor, ok := viewDescriptors[string(view)]
	if !ok {
		descriptor = string(view)
	}
	return strings.Join([]string{
		styleTemplate,
		fmt.Sprintf(referenceViewTemplate, strings.ToUpper(string(view)), characterVisuals, descriptor),
	}, "\n\n")
}
