package publisher

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から、
// GCS/ローカルを考慮した最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	if strings.HasPrefix(strings.ToLower(baseDir), "gs://") {
		u, err := url.Parse(baseDir)
		if err != nil {
			return "", fmt.Errorf("無効なGCS URIです: %w", err)
		}

		// url.JoinPath はパス部分のみを安全に結合し、スキーム部分を保護します
		u.Path, err = url.JoinPath(u.Path, fileName)
		if err != nil {
			return "", fmt.Errorf("GCSパスの結合に失敗しました: %w", err)
		}
		return u.String(), nil
	}
	return filepath.Join(baseDir, fileName), nil
}

// SceneImageName はシーン画像の安定したファイル名を返します（例: scene_03_a.png）。
func SceneImageName(sceneID int, frame string) string {
	return fmt.Sprintf("scene_%02d_%s.png", sceneID, frame)
}

// ReferenceViewName は三面図1視点分のファイル名を返します（例: reference_front.png）。
func ReferenceViewName(view domain.ReferenceView) string {
	return fmt.Sprintf("reference_%s.png", view)
}

// CanonicalImageName は正準キャラクター画像のファイル名です。
const CanonicalImageName = "character_canonical.png"
