package queue

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/adornalabs/tryon-api/internal/domain"
)

// generativePromptText renders a model from the user's prompt wearing the
// jewelry in the supplied image. It is also the fallback for
// with_prompt_and_model jobs that carry no combined image.
const generativePromptText = `Create a realistic, high-quality image where {{.Prompt}}. The person should be wearing the specific jewelry shown in this image.

**Critical requirements:**
- The jewelry must be the exact piece from the provided image, not a substitute or generic version
- Ensure seamless integration with proper perspective, scale, and positioning
- Match lighting and shadows to create realistic depth and contours
- The jewelry should appear genuinely worn, not digitally overlaid
- Maintain professional photography quality with sharp details and natural colors
- Focus on creating an authentic, e-commerce ready result`

// compositingPromptText instructs the provider to transfer the jewelry from
// the left panel of a combined side-by-side image onto the model in the right
// panel, preserving the model and excluding the reference panel from the output.
const compositingPromptText = `**Goal: Virtual Try-On - Place Jewelry from Left onto Model on Right.**

You are provided with a single image composed of two distinct panels, presented side-by-side.

The **left panel** clearly displays a specific piece of jewelry against a plain background.

The **right panel** features a model who is currently not wearing this jewelry.

**Your primary task is to generate a single, new, and highly realistic image where the model from the right panel is accurately and naturally wearing *only* the specific jewelry from the left panel.**

**DO NOT SHOW THE RIGHT PANEL IMAGE ON THE RIGHT PANEL**
**ONLY SHOW THE MODEL WEARING THE JEWELLERY**

**Crucial requirements for the output image:**

1. **Exact Jewelry Transfer:** The jewelry applied to the model *must be the identical jewelry from the left panel*. Do not substitute it with any other jewelry or generic pieces.
2. **Seamless Integration:** Composite the jewelry onto the model so that it appears genuinely worn. Pay close attention to:
   * **Perspective and Scale:** The jewelry should be scaled and angled correctly to fit the model's body and pose.
   * **Lighting and Shadows:** Ensure the lighting on the jewelry matches the existing lighting on the model, casting appropriate and subtle shadows to enhance realism.
   * **Depth and Contours:** The jewelry should realistically conform to the curves of the model's body, not appear flat or "pasted on."
3. **Model Preservation:** Maintain the model's original pose, expression, clothing, hairstyle, and overall appearance from the right panel. Your only modification to the model should be the addition of this specific jewelry. Do not change the background, clothing, or any other features.
4. **High Quality Output:** The final image must be of professional photographic quality, with sharp details, natural colors, and a polished aesthetic, suitable for e-commerce or fashion display.
5. **Only show the model wearing jewelry**: You don't have to show the image in the right panel that is for your reference, remove that image completely and just process left image.

Additional context: {{.Prompt}}`

var (
	generativePrompt  = template.Must(template.New("generative").Parse(generativePromptText))
	compositingPrompt = template.Must(template.New("compositing").Parse(compositingPromptText))
)

// BuildPrompt constructs the provider prompt deterministically from the job.
// A with_prompt_and_model job uses the compositing prompt only when a
// combined image is available; otherwise it degrades to the generative
// prompt against the jewelry image alone.
func BuildPrompt(tryOn *domain.TryOn) (string, error) {
	tmpl := generativePrompt
	if tryOn.Kind == domain.KindPromptAndModel && tryOn.CombinedImageRef != "" {
		tmpl = compositingPrompt
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, tryOn); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}

	return sb.String(), nil
}
