package domain

import (
	"fmt"
)

const (
	// MinScenes は解析コントラクトが要求するシーン数の下限です。
	MinScenes = 5
	// MaxScenes は解析コントラクトが要求するシーン数の上限です。
	MaxScenes = 8
)

// ConsistencyBible は、セッション内の全画像で共有される視覚設定（バイブル）です。
// 解析時に1度だけ生成され、以後は不変なのだ。
type ConsistencyBible struct {
	CharacterVisuals   string `json:"character_visuals"`
	EnvironmentVisuals string `json:"environment_visuals"`
}

// StoryboardPlan は、台本解析の結果（バイブル + 順序付きシーンリスト）です。
// AI モデルが返す JSON と 1:1 で対応します。
type StoryboardPlan struct {
	Title            string           `json:"title"`
	ConsistencyBible ConsistencyBible `json:"consistency_bible"`
	Scenes           []Scene          `json:"scenes"`
}

// Validate は、解析結果が契約どおりの形をしているかを検証します。
// シーン数の範囲、IDの厳密な昇順、各シーンの必須記述の存在を確認するのだ。
func (p StoryboardPlan) Validate() error {
	if p.ConsistencyBible.CharacterVisuals == "" {
		return fmt.Errorf("consistency_bible.character_visuals が空です")
	}
	if p.ConsistencyBible.EnvironmentVisuals == "" {
		return fmt.Errorf("consistency_bible.environment_visuals が空です")
	}
	if n := len(p.Scenes); n < MinScenes || n > MaxScenes {
		return fmt.Errorf("シーン数が契約範囲外です: %d (期待: %d〜%d)", n, MinScenes, MaxScenes)
	}

	prevID := 0
	for i, sc := range p.Scenes {
		if sc.ID <= prevID {
			return fmt.Errorf("シーンIDが厳密な昇順ではありません: index=%d id=%d", i, sc.ID)
		}
		prevID = sc.ID

		if sc.ImageADescription == "" || sc.ImageBDescription == "" {
			return fmt.Errorf("シーン %d のフレーム記述が不足しています", sc.ID)
		}
		if sc.MotionPrompt == "" {
			return fmt.Errorf("シーン %d の motion_prompt が空です", sc.ID)
		}
		if !sc.CharacterDirection.Valid() {
			return fmt.Errorf("シーン %d の character_direction が不正です: %q", sc.ID, sc.CharacterDirection)
		}
	}
	return nil
}

// StoryboardData は1生成セッションのルート集約です。
// 「generate」リクエストごとに丸ごと置き換えられ、画像生成中は ID キーの
// パッチによって少しずつ更新されます。ライブな実体の所有権はストアにあります。
type StoryboardData struct {
	Title                   string                   `json:"title"`
	ConsistencyBible        ConsistencyBible         `json:"consistency_bible"`
	Scenes                  []Scene                  `json:"scenes"`
	CanonicalCharacter      *ImageRef                `json:"canonical_character,omitempty"`
	CharacterReferenceSheet *CharacterReferenceSheet `json:"character_reference_sheet,omitempty"`
}

// NewStoryboardData は解析プランから新しいセッションデータを構築します。
// 画像フィールドと進行フラグは初期状態（未生成）にリセットされるのだ。
func NewStoryboardData(plan StoryboardPlan) *StoryboardData {
	scenes := make([]Scene, len(plan.Scenes))
	for i, sc := range plan.Scenes {
		scenes[i] = sc.Clone()
		scenes[i].ImageA = nil
		scenes[i].ImageB = nil
		scenes[i].IsGeneratingImage = false
		scenes[i].RetryPhase = PhaseIdle
		scenes[i].ImageAFailed = false
		scenes[i].ImageBFailed = false
	}
	return &StoryboardData{
		Title:            plan.Title,
		ConsistencyBible: plan.ConsistencyBible,
		Scenes:           scenes,
	}
}

// Clone はセッションデータ全体のディープコピーを返します。
// ストアのスナップショット読み取りで、読者が部分更新を観測しないために使います。
func (d *StoryboardData) Clone() *StoryboardData {
	if d == nil {
		return nil
	}
	copied := &StoryboardData{
		Title:              d.Title,
		ConsistencyBible:   d.ConsistencyBible,
		CanonicalCharacter: d.CanonicalCharacter.Clone(),
	}
	copied.Scenes = make([]Scene, len(d.Scenes))
	for i, sc := range d.Scenes {
		copied.Scenes[i] = sc.Clone()
	}
	if d.CharacterReferenceSheet != nil {
		sheet := d.CharacterReferenceSheet.Clone()
		copied.CharacterReferenceSheet = &sheet
	}
	return copied
}

// SceneIndex は ID に一致するシーンの添字を返します。見つからなければ -1 です。
func (d *StoryboardData) SceneIndex(id int) int {
	for i := range d.Scenes {
		if d.Scenes[i].ID == id {
			return i
		}
	}
	return -1
}

// Complete は、全シーンの両フレームが揃っているかを返します。
// アーカイブ出力の前提条件チェックに使用します。
func (d *StoryboardData) Complete() bool {
	for _, sc := range d.Scenes {
		if !sc.Complete() {
			return false
		}
	}
	return true
}

// IncompleteSceneIDs は、フレームが欠けているシーンのID一覧を返します。
func (d *StoryboardData) IncompleteSceneIDs() []int {
	var ids []int
	for _, sc := range d.Scenes {
		if !sc.Complete() {
			ids = append(ids, sc.ID)
		}
	}
	return ids
}
