package publisher

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

const (
	archiveMetadataName    = "storyboard.json"
	archiveMotionName      = "motion_prompts.txt"
	archiveConsistencyName = "consistency_notes.txt"
	archiveImageDir        = "images"
)

// ExportPreconditionError は、アーカイブ要求時点で未完成のシーンが残っていたことを示します。
// アーカイブは部分的な結果を黙って固めることを許さないのだ。
type ExportPreconditionError struct {
	MissingScenes []int
}

func (e *ExportPreconditionError) Error() string {
	return fmt.Sprintf("未完成のシーンが残っているためアーカイブできません: %v", e.MissingScenes)
}

// BuildArchive は、全画像・機械可読メタデータ・人間可読サマリーを含む
// zip アーカイブをメモリ上に構築します。
// 呼び出し時点で1シーンでも未完成なら ExportPreconditionError で拒否します。
func BuildArchive(data *domain.StoryboardData) (*bytes.Buffer, error) {
	if missing := data.IncompleteSceneIDs(); len(missing) > 0 {
		return nil, &ExportPreconditionError{MissingScenes: missing}
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	// シーン画像
	for _, scene := range data.Scenes {
		frames := []struct {
			img  *domain.ImageRef
			name string
		}{
			{scene.ImageA, SceneImageName(scene.ID, "a")},
			{scene.ImageB, SceneImageName(scene.ID, "b")},
		}
		for _, f := range frames {
			if err := addArchiveFile(zw, archiveImageDir+"/"+f.name, f.img.Data); err != nil {
				return nil, err
			}
		}
	}

	// キャラクター資産（存在するものだけ）
	if data.CanonicalCharacter != nil {
		if err := addArchiveFile(zw, archiveImageDir+"/"+CanonicalImageName, data.CanonicalCharacter.Data); err != nil {
			return nil, err
		}
	}
	if sheet := data.CharacterReferenceSheet; sheet != nil {
		for _, view := range domain.ReferenceViews {
			img := sheet.View(view)
			if img == nil {
				continue
			}
			if err := addArchiveFile(zw, archiveImageDir+"/"+ReferenceViewName(view), img.Data); err != nil {
				return nil, err
			}
		}
	}

	// 機械可読メタデータ
	metadata, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("メタデータのJSON化に失敗しました: %w", err)
	}
	if err := addArchiveFile(zw, archiveMetadataName, metadata); err != nil {
		return nil, err
	}

	// 人間可読サマリー
	if err := addArchiveFile(zw, archiveMotionName, []byte(buildMotionSummary(data))); err != nil {
		return nil, err
	}
	if err := addArchiveFile(zw, archiveConsistencyName, []byte(buildConsistencyNotes(data))); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("アーカイブの書き込みに失敗しました: %w", err)
	}
	return buf, nil
}

func addArchiveFile(zw *zip.Writer, name string, body []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("アーカイブエントリ %s の作成に失敗しました: %w", name, err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("アーカイブエントリ %s の書き込みに失敗しました: %w", name, err)
	}
	return nil
}

func buildMotionSummary(data *domain.StoryboardData) string {
	var sb strings.Builder
	for _, scene := range data.Scenes {
		sb.WriteString(fmt.Sprintf("シーン %d: %s\n", scene.ID, scene.Title))
		sb.WriteString(fmt.Sprintf("  %s\n\n", scene.MotionPrompt))
	}
	return sb.String()
}

func buildConsistencyNotes(data *domain.StoryboardData) string {
	var sb strings.Builder
	sb.WriteString("CHARACTER:\n")
	sb.WriteString(data.ConsistencyBible.CharacterVisuals + "\n\n")
	sb.WriteString("ENVIRONMENT:\n")
	sb.WriteString(data.ConsistencyBible.EnvironmentVisuals + "\n")
	return sb.String()
}
