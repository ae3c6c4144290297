package mutate

import (
	"slices"
	"strings"

	"canvas-cli/internal/model"
	"canvas-cli/internal/store"
)

// DefaultSlideDuration is the playback length, in seconds, of a new slide.
const DefaultSlideDuration = 8.0

// AddSlide appends a captioned slide to a story. A non-positive duration uses
// DefaultSlideDuration.
func AddSlide(d model.Data, caption string, duration float64) (model.Data, string) {
	s, ok := d.(model.StoryData)
	if !ok {
		return d, ""
	}
	if duration <= 0 {
		duration = DefaultSlideDuration
	}
	id, next := store.NextSlideID(s.SlidesID)
	slides := make([]model.Slide, 0, len(s.Slides)+1)
	slides = append(slides, s.Slides...)
	s.Slides = append(slides, model.Slide{ID: id, Caption: strings.TrimSpace(caption), Duration: &duration})
	s.SlidesID = next
	return s, id
}

func updateSlide(d model.Data, slideID string, fn func(*model.Slide)) model.Data {
	s, ok := d.(model.StoryData)
	if !ok {
		return d
	}
	slideID = strings.TrimSpace(slideID)
	idx := slices.IndexFunc(s.Slides, func(sl model.Slide) bool { return sl.ID == slideID })
	if idx < 0 {
		return d
	}
	s.Slides = slices.Clone(s.Slides)
	fn(&s.Slides[idx])
	return s
}

func SetSlideCaption(d model.Data, slideID, caption string) model.Data {
	return updateSlide(d, slideID, func(sl *model.Slide) { sl.Caption = caption })
}

// SetSlideDuration ignores non-positive durations.
func SetSlideDuration(d model.Data, slideID string, seconds float64) model.Data {
	if seconds <= 0 {
		return d
	}
	return updateSlide(d, slideID, func(sl *model.Slide) { sl.Duration = &seconds })
}

func SetSlideAudio(d model.Data, slideID, url string) model.Data {
	return updateSlide(d, slideID, func(sl *model.Slide) { sl.AudioURL = url })
}

func RemoveSlide(d model.Data, slideID string) model.Data {
	s, ok := d.(model.StoryData)
	if !ok {
		return d
	}
	slideID = strings.TrimSpace(slideID)
	idx := slices.IndexFunc(s.Slides, func(sl model.Slide) bool { return sl.ID == slideID })
	if idx < 0 {
		return d
	}
	s.Slides = slices.Delete(slices.Clone(s.Slides), idx, idx+1)
	return s
}

// FindSlide returns the slide with the given id.
func FindSlide(d model.Data, slideID string) (model.Slide, bool) {
	s, ok := d.(model.StoryData)
	if !ok {
		return model.Slide{}, false
	}
	slideID = strings.TrimSpace(slideID)
	for _, sl := range s.Slides {
		if sl.ID == slideID {
			return sl, true
		}
	}
	return model.Slide{}, false
}
