package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"canvas-cli/internal/model"
	"canvas-cli/internal/mutate"
)

// Voices accepted by the narration service.
var Voices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

const illustrationPreamble = "You are a children's story expert who specializes in creating animated kids friendly illustrations for story cards."

// CharacterImagePrompt describes a character for the image service.
func CharacterImagePrompt(c model.CharacterData, itemName, style string) string {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = strings.TrimSpace(itemName)
	}
	var b strings.Builder
	b.WriteString(illustrationPreamble)
	b.WriteString(" Draw a character portrait")
	if name != "" {
		fmt.Fprintf(&b, " of %s", name)
	}
	b.WriteString(".")
	if d := strings.TrimSpace(c.Description); d != "" {
		fmt.Fprintf(&b, " %s", strings.TrimSuffix(d, "."))
		b.WriteString(".")
	}
	if len(c.Traits) > 0 {
		fmt.Fprintf(&b, " Personality: %s.", strings.Join(c.Traits, ", "))
	}
	if s := strings.TrimSpace(c.SourceComic); s != "" {
		fmt.Fprintf(&b, " From the comic %q.", s)
	}
	if s := strings.TrimSpace(style); s != "" {
		fmt.Fprintf(&b, " Style: %s.", s)
	}
	return b.String()
}

// GenerateCharacterImage renders a portrait for a character item and stores its
// URL in image_url. The result is the URL, or a message describing the failure.
func (e *Engine) GenerateCharacterImage(ctx context.Context, itemID, style string) string {
	it, _, ok := e.state.Snapshot().FindItem(itemID)
	if !ok {
		return mutate.NotFoundError{Kind: "item", ID: itemID}.Error()
	}
	c, ok := it.Data.(model.CharacterData)
	if !ok {
		return mutate.WrongTypeError{ID: it.ID, Want: string(model.ItemTypeCharacter), Got: string(it.Type)}.Error()
	}
	if e.images == nil {
		return "image generation is not configured"
	}

	start := time.Now()
	url, err := e.images.GenerateImage(ctx, CharacterImagePrompt(c, it.Name, style))
	e.metrics.Generation("image", time.Since(start), err)
	if err != nil {
		e.log.Warn("image generation failed", zap.String("itemId", it.ID), zap.Error(err))
		return fmt.Sprintf("image generation failed: %v", err)
	}
	e.SetField(it.ID, mutate.FieldImageURL, url)
	return url
}

// GenerateSlideNarration voices a slide caption and stores the audio URL on the slide.
func (e *Engine) GenerateSlideNarration(ctx context.Context, itemID, slideID, voice string) string {
	it, _, ok := e.state.Snapshot().FindItem(itemID)
	if !ok {
		return mutate.NotFoundError{Kind: "item", ID: itemID}.Error()
	}
	if _, ok := it.Data.(model.StoryData); !ok {
		return mutate.WrongTypeError{ID: it.ID, Want: string(model.ItemTypeStory), Got: string(it.Type)}.Error()
	}
	slide, ok := mutate.FindSlide(it.Data, slideID)
	if !ok {
		return mutate.NotFoundError{Kind: "slide", ID: slideID}.Error()
	}
	text := strings.TrimSpace(slide.Caption)
	if text == "" {
		return fmt.Sprintf("slide %s has no caption to narrate", slide.ID)
	}
	voice = strings.ToLower(strings.TrimSpace(voice))
	if voice == "" {
		voice = e.voice
	}
	if !validVoice(voice) {
		return fmt.Sprintf("unknown voice %q (expected one of %s)", voice, strings.Join(Voices, ", "))
	}
	if e.narrator == nil {
		return "narration is not configured"
	}

	start := time.Now()
	url, err := e.narrator.Narrate(ctx, text, voice)
	e.metrics.Generation("speech", time.Since(start), err)
	if err != nil {
		e.log.Warn("narration failed", zap.String("itemId", it.ID), zap.String("slideId", slide.ID), zap.Error(err))
		return fmt.Sprintf("narration failed: %v", err)
	}
	e.updateItem("setSlideAudio", it.ID, func(d model.Data) model.Data { return mutate.SetSlideAudio(d, slide.ID, url) })
	return url
}

func validVoice(v string) bool {
	for _, known := range Voices {
		if v == known {
			return true
		}
	}
	return false
}
