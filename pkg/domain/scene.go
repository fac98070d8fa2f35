package domain

// CharacterDirection は、シーン内でキャラクターが向いている方向を表します。
type CharacterDirection string

const (
	DirectionLeft    CharacterDirection = "left"
	DirectionRight   CharacterDirection = "right"
	DirectionForward CharacterDirection = "forward"
	DirectionBack    CharacterDirection = "back"
)

// Valid は、解析結果の方向が定義済みの4方向のいずれかであるかを判定します。
func (d CharacterDirection) Valid() bool {
	switch d {
	case DirectionLeft, DirectionRight, DirectionForward, DirectionBack:
		return true
	}
	return false
}

// RetryPhase は、画像生成の進行フェーズを表す列挙型なのだ。
// 整数を暗黙のフェーズラベルとして使い回さず、型で区別するのだ。
type RetryPhase int

const (
	PhaseIdle RetryPhase = iota
	PhaseFirstPassA
	PhaseFirstPassB
	PhaseRepairA
	PhaseRepairB
)

// String はフェーズの表示名を返します。進捗ログやUI表示で使用します。
func (p RetryPhase) String() string {
	switch p {
	case PhaseFirstPassA:
		return "first_pass_a"
	case PhaseFirstPassB:
		return "first_pass_b"
	case PhaseRepairA:
		return "repair_a"
	case PhaseRepairB:
		return "repair_b"
	default:
		return "idle"
	}
}

// ImageRef は、生成された1枚の画像データへのハンドルです。
// Data はセッション中のメモリ上の実体、Path は保存後のロケーション（ローカル or gs://）です。
type ImageRef struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type,omitempty"`
	Path     string `json:"path,omitempty"`
}

// Clone は ImageRef の防御的コピーを返します。nil レシーバーは nil のまま返すのだ。
func (r *ImageRef) Clone() *ImageRef {
	if r == nil {
		return nil
	}
	copied := *r
	if r.Data != nil {
		copied.Data = make([]byte, len(r.Data))
		copy(copied.Data, r.Data)
	}
	return &copied
}

// Scene は絵コンテの1シーン（物語の1ビート）を表します。
// 記述系フィールドは解析時に一括で生成され、画像フィールドと進行フラグは
// 生成パイプラインによって少しずつ書き込まれていきます。
type Scene struct {
	ID                  int                `json:"id"`
	Title               string             `json:"title"`
	Context             string             `json:"context"`
	ImageADescription   string             `json:"image_a_description"`
	ImageBDescription   string             `json:"image_b_description"`
	MotionPrompt        string             `json:"motion_prompt"`
	CharacterDirection  CharacterDirection `json:"character_direction"`
	CharacterExpression string             `json:"character_expression"`
	CharacterPose       string             `json:"character_pose"`

	// 以下は生成パイプラインが書き込む進行状態なのだ。
	ImageA            *ImageRef  `json:"image_a,omitempty"`
	ImageB            *ImageRef  `json:"image_b,omitempty"`
	IsGeneratingImage bool       `json:"is_generating_image"`
	RetryPhase        RetryPhase `json:"retry_phase,omitempty"`
	ImageAFailed      bool       `json:"image_a_failed"`
	ImageBFailed      bool       `json:"image_b_failed"`
}

// Complete は、開始・終了の両フレームが揃っているかを返します。
func (s Scene) Complete() bool {
	return s.ImageA != nil && s.ImageB != nil
}

// Clone はシーンの防御的コピーを返します。
func (s Scene) Clone() Scene {
	copied := s
	copied.ImageA = s.ImageA.Clone()
	copied.ImageB = s.ImageB.Clone()
	return copied
}

// Ptr は任意の値へのポインタを返す小さなヘルパーです。
// 部分更新パッチのフィールド指定で使用します。
func Ptr[T any](v T) *T {
	return &v
}
