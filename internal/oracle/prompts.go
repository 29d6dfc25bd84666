package oracle

import (
	"fmt"
	"strings"
)

// dreamPrompt asks for a full dream interpretation as strict JSON.
func dreamPrompt(description string) string {
	return fmt.Sprintf(`You are a dream interpreter for an entertainment service. Analyze the dream below and return ONLY a JSON object, no other text.

DREAM: %s

Return:
{
  "themes": ["three plain-language themes"],
  "emotions": ["three emotions the dream carries"],
  "symbols": ["four or five concrete symbols with short meanings"],
  "narrative": "a vivid two or three sentence interpretation",
  "tags": ["five short lowercase tags for matching"],
  "visual_prompt": "an English image prompt, dreamy and surreal, soft light, no dark or violent imagery"
}`, description)
}

// momentPrompt asks for lightweight tags for a moment caption.
func momentPrompt(caption, mediaType string) string {
	return fmt.Sprintf(`Extract up to five short lowercase tags from this %s caption for thematic matching. Return ONLY a JSON object: {"tags": ["..."]}.

CAPTION: %s`, mediaType, caption)
}

// refinePrompt asks the oracle to judge a dream/moment pairing.
func refinePrompt(in RefineInput) string {
	return fmt.Sprintf(`Analyze resonance between a dream and a moment:

Dream themes: %s
Dream emotions: %s
Dream tags: %s

Moment caption: %s
Moment tags: %s

Return ONLY a JSON object:
{
  "score": 0-100,
  "explanation": "poetic one-sentence explanation of the connection"
}`,
		strings.Join(in.DreamThemes, ", "),
		strings.Join(in.DreamEmotions, ", "),
		strings.Join(in.DreamTags, ", "),
		in.MomentCaption,
		strings.Join(in.MomentTags, ", "))
}
