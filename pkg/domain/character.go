package domain

// ReferenceView は三面図の1視点（正面・側面・背面）を識別します。
type ReferenceView string

const (
	ViewFront ReferenceView = "front"
	ViewSide  ReferenceView = "side"
	ViewBack  ReferenceView = "back"
)

// ReferenceViews は三面図の固定の反復順です。
// 順序に意味的な依存はなく、単にログと保存名を安定させるためのものなのだ。
var ReferenceViews = []ReferenceView{ViewFront, ViewSide, ViewBack}

// CharacterReferenceSheet は、正準キャラクター画像から派生した三面図です。
// 各視点は生成に成功するまで個別に nil を許容し、部分的な完成を認めます。
type CharacterReferenceSheet struct {
	Front *ImageRef `json:"front,omitempty"`
	Side  *ImageRef `json:"side,omitempty"`
	Back  *ImageRef `json:"back,omitempty"`
}

// View は指定された視点の画像を返します。未生成なら nil です。
func (s *CharacterReferenceSheet) View(v ReferenceView) *ImageRef {
	switch v {
	case ViewFront:
		return s.Front
	case ViewSide:
		return s.Side
	case ViewBack:
		return s.Back
	}
	return nil
}

// SetView は指定された視点に画像を設定します。
func (s *CharacterReferenceSheet) SetView(v ReferenceView, img *ImageRef) {
	switch v {
	case ViewFront:
		s.Front = img
	case ViewSide:
		s.Side = img
	case ViewBack:
		s.Back = img
	}
}

// Populated は、1枚でも生成済みの視点があるかを返します。
func (s *CharacterReferenceSheet) Populated() bool {
	return s.Front != nil || s.Side != nil || s.Back != nil
}

// Clone は三面図の防御的コピーを返します。
func (s CharacterReferenceSheet) Clone() CharacterReferenceSheet {
	return CharacterReferenceSheet{
		Front: s.Front.Clone(),
		Side:  s.Side.Clone(),
		Back:  s.Back.Clone(),
	}
}
