package domain

import (
	"encoding/json"
	"testing"
)

func validPlan() StoryboardPlan {
	scenes := make([]Scene, MinScenes)
	for i := range scenes {
		scenes[i] = Scene{
			ID:                  i + 1,
			Title:               "シーン",
			Context:             "草原",
			ImageADescription:   "fox standing",
			ImageBDescription:   "fox sitting",
			MotionPrompt:        "the fox slowly sits down",
			CharacterDirection:  DirectionForward,
			CharacterExpression: "calm",
			CharacterPose:       "standing",
		}
	}
	return StoryboardPlan{
		Title: "きつねの物語",
		ConsistencyBible: ConsistencyBible{
			CharacterVisuals:   "orange fox, white belly, bushy tail",
			EnvironmentVisuals: "sunny forest clearing",
		},
		Scenes: scenes,
	}
}

func TestStoryboardPlan_Validate(t *testing.T) {
	t.Run("正常なプランは検証を通過するのだ", func(t *testing.T) {
		if err := validPlan().Validate(); err != nil {
			t.Fatalf("正常なプランでエラーが発生しました: %v", err)
		}
	})

	t.Run("シーン数が下限未満ならエラーになること", func(t *testing.T) {
		p := validPlan()
		p.Scenes = p.Scenes[:MinScenes-1]
		if err := p.Validate(); err == nil {
			t.Error("シーン数不足でエラーが発生しませんでした")
		}
	})

	t.Run("IDが昇順でなければエラーになること", func(t *testing.T) {
		p := validPlan()
		p.Scenes[2].ID = p.Scenes[1].ID
		if err := p.Validate(); err == nil {
			t.Error("ID重複でエラーが発生しませんでした")
		}
	})

	t.Run("不正な方向はエラーになること", func(t *testing.T) {
		p := validPlan()
		p.Scenes[0].CharacterDirection = "up"
		if err := p.Validate(); err == nil {
			t.Error("不正な方向でエラーが発生しませんでした")
		}
	})

	t.Run("バイブルが空ならエラーになること", func(t *testing.T) {
		p := validPlan()
		p.ConsistencyBible.CharacterVisuals = ""
		if err := p.Validate(); err == nil {
			t.Error("空のバイブルでエラーが発生しませんでした")
		}
	})
}

func TestNewStoryboardData(t *testing.T) {
	plan := validPlan()
	plan.Scenes[0].ImageA = &ImageRef{Data: []byte("stale"), MimeType: "image/png"}
	plan.Scenes[0].ImageAFailed = true
	plan.Scenes[0].IsGeneratingImage = true

	data := NewStoryboardData(plan)

	if len(data.Scenes) != len(plan.Scenes) {
		t.Fatalf("シーン数が一致しません: %d != %d", len(data.Scenes), len(plan.Scenes))
	}
	sc := data.Scenes[0]
	if sc.ImageA != nil || sc.ImageAFailed || sc.IsGeneratingImage || sc.RetryPhase != PhaseIdle {
		t.Errorf("生成状態が初期化されていません: %+v", sc)
	}
}

func TestStoryboardData_Clone(t *testing.T) {
	data := NewStoryboardData(validPlan())
	data.Scenes[0].ImageA = &ImageRef{Data: []byte{1, 2, 3}, MimeType: "image/png"}
	data.CharacterReferenceSheet = &CharacterReferenceSheet{
		Front: &ImageRef{Data: []byte{9}, MimeType: "image/png"},
	}

	copied := data.Clone()
	copied.Scenes[0].ImageA.Data[0] = 99
	copied.CharacterReferenceSheet.Front = nil
	copied.Scenes[1].ImageBFailed = true

	if data.Scenes[0].ImageA.Data[0] != 1 {
		t.Error("クローン先の変更が元データに波及しています（画像バイト列）")
	}
	if data.CharacterReferenceSheet.Front == nil {
		t.Error("クローン先の変更が元データに波及しています（三面図）")
	}
	if data.Scenes[1].ImageBFailed {
		t.Error("クローン先の変更が元データに波及しています（フラグ）")
	}
}

func TestStoryboardData_Complete(t *testing.T) {
	data := NewStoryboardData(validPlan())
	if data.Complete() {
		t.Error("未生成の状態で Complete が true になっています")
	}

	img := &ImageRef{Data: []byte("x"), MimeType: "image/png"}
	for i := range data.Scenes {
		data.Scenes[i].ImageA = img.Clone()
		data.Scenes[i].ImageB = img.Clone()
	}
	if !data.Complete() {
		t.Error("全フレーム揃いで Complete が false になっています")
	}

	data.Scenes[2].ImageB = nil
	if got := data.IncompleteSceneIDs(); len(got) != 1 || got[0] != data.Scenes[2].ID {
		t.Errorf("欠落シーンの検出が不正です: %v", got)
	}
}

func TestScene_JSON(t *testing.T) {
	t.Run("画像バイト列はJSONに載らないこと", func(t *testing.T) {
		sc := Scene{
			ID:     1,
			ImageA: &ImageRef{Data: []byte("secret-binary"), MimeType: "image/png", Path: "images/scene_01_a.png"},
		}
		raw, err := json.Marshal(sc)
		if err != nil {
			t.Fatalf("Marshal失敗なのだ: %v", err)
		}
		if string(raw) == "" || json.Valid(raw) == false {
			t.Fatal("不正なJSONが出力されました")
		}
		var decoded Scene
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("Unmarshal失敗なのだ: %v", err)
		}
		if decoded.ImageA == nil || decoded.ImageA.Path != "images/scene_01_a.png" {
			t.Errorf("画像パスが保持されていません: %+v", decoded.ImageA)
		}
		if decoded.ImageA.Data != nil {
			t.Error("画像バイト列がJSON経由で漏れています")
		}
	})
}

func TestRetryPhase_String(t *testing.T) {
	cases := map[RetryPhase]string{
		PhaseIdle:       "idle",
		PhaseFirstPassA: "first_pass_a",
		PhaseFirstPassB: "first_pass_b",
		PhaseRepairA:    "repair_a",
		PhaseRepairB:    "repair_b",
	}
	for phase, want := range cases {
		if got := phase.String(); got != want {
			t.Errorf("期待値 %q, 実際の値 %q", want, got)
		}
	}
}
