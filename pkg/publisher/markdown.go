package publisher

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

const missingImagePlaceholder = "_(画像未生成)_"

// BuildDocument は、絵コンテ全体を1つの Markdown ドキュメントに整形します。
// 欠落した画像はプレースホルダーで表現し、生成途中のデータでも安全に呼び出せます。
// 画像パスは imageDir からの相対参照として埋め込まれます。
func BuildDocument(data *domain.StoryboardData, imageDir string) string {
	var sb strings.Builder

	title := data.Title
	if title == "" {
		title = "絵コンテ"
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))

	// 一貫性バイブル
	sb.WriteString("## 一貫性バイブル\n\n")
	sb.WriteString(fmt.Sprintf("- **キャラクター**: %s\n", data.ConsistencyBible.CharacterVisuals))
	sb.WriteString(fmt.Sprintf("- **環境**: %s\n\n", data.ConsistencyBible.EnvironmentVisuals))

	// キャラクター参照
	if data.CanonicalCharacter != nil || (data.CharacterReferenceSheet != nil && data.CharacterReferenceSheet.Populated()) {
		sb.WriteString("## キャラクターリファレンス\n\n")
		if data.CanonicalCharacter != nil {
			sb.WriteString(fmt.Sprintf("![canonical](%s/%s)\n", imageDir, CanonicalImageName))
		}
		if sheet := data.CharacterReferenceSheet; sheet != nil {
			for _, view := range domain.ReferenceViews {
				if sheet.View(view) != nil {
					sb.WriteString(fmt.Sprintf("![%s](%s/%s)\n", view, imageDir, ReferenceViewName(view)))
				}
			}
		}
		sb.WriteString("\n")
	}

	// シーン
	for _, scene := range data.Scenes {
		sb.WriteString(fmt.Sprintf("## シーン %d: %s\n\n", scene.ID, scene.Title))
		if scene.Context != "" {
			sb.WriteString(fmt.Sprintf("%s\n\n", scene.Context))
		}

		sb.WriteString("### 開始フレーム\n\n")
		writeFrame(&sb, scene.ImageA, imageDir, SceneImageName(scene.ID, "a"), scene.ImageADescription)

		sb.WriteString("### 終了フレーム\n\n")
		writeFrame(&sb, scene.ImageB, imageDir, SceneImageName(scene.ID, "b"), scene.ImageBDescription)

		sb.WriteString("### モーションプロンプト\n\n")
		sb.WriteString(fmt.Sprintf("> %s\n\n", scene.MotionPrompt))
	}

	return sb.String()
}

func writeFrame(sb *strings.Builder, img *domain.ImageRef, imageDir, fileName, description string) {
	if img != nil {
		sb.WriteString(fmt.Sprintf("![%s](%s/%s)\n\n", fileName, imageDir, fileName))
	} else {
		sb.WriteString(missingImagePlaceholder + "\n\n")
	}
	sb.WriteString(fmt.Sprintf("%s\n\n", description))
}
