package prompts

// DefaultStyleTemplate は、全生成画像に共通で適用する画風ブロックです。
// セッション内の全シーンが同じスタイルで描かれるよう、先頭に固定で差し込みます。
const DefaultStyleTemplate = `### GLOBAL VISUAL STYLE ###
- RENDERING: Japanese anime style, clean line art, vibrant colors, cinematic lighting, high detail.
- COMPOSITION: cinematic framing, sharp focus, no text, no speech bubbles, no watermarks.`

const (
	// consistencyHeader は、バイブル由来の一貫性コンテキストの見出しです。
	consistencyHeader = "### CONSISTENCY CONTEXT (STRICT IDENTITY) ###"

	// referenceNote は、参照画像を渡した際の同一性維持の指示文です。
	referenceNote = `### REFERENCE IMAGE ###
- The attached image is the canonical character. Preserve its exact visual identity: same face, hair, clothing, proportions, and art style.`

	// sceneHeader は、シーン固有の描写指示の見出しです。
	sceneHeader = "### SCENE ###"
)

// characterCreationTemplate は、正準キャラクター画像（アイデンティティの基準）生成用の枠組みです。
const characterCreationTemplate = `### CHARACTER CREATION ###
- Create the single canonical full-body image of this character: %s
- POSE: standing, neutral expression, facing forward.
- BACKGROUND: plain white background, no props, no text.`

// referenceViewTemplate は三面図の各視点生成用の枠組みです。
// 衣装・プロポーション・画風を維持したまま、カメラアングルのみを変更させるのだ。
const referenceViewTemplate = `### CHARACTER TURNAROUND VIEW: %s ###
- Character: %s
- Render the EXACT SAME character as the attached reference image, changing ONLY the camera angle to the %s view.
- Preserve identical clothing, colors, proportions, hairstyle, and art style.
- POSE: standing full body, plain white background.`

// viewDescriptors は三面図の視点名（プロンプト中で使う英語表現）です。
var viewDescriptors = map[string]string{
	"front": "front-facing",
	"side":  "side profile (90 degrees)",
	"back":  "rear (seen from behind)",
}
