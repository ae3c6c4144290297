package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"canvas-cli/internal/args"
	"canvas-cli/internal/model"
)

type scriptedChooser struct {
	mu      sync.Mutex
	value   string
	ok      bool
	err     error
	titles  []string
	choices [][]Choice
	started chan struct{}
	release chan struct{}
}

func (c *scriptedChooser) Choose(ctx context.Context, title string, choices []Choice) (string, bool, error) {
	c.mu.Lock()
	c.titles = append(c.titles, title)
	c.choices = append(c.choices, choices)
	c.mu.Unlock()
	if c.started != nil {
		close(c.started)
	}
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}
	return c.value, c.ok, c.err
}

func TestChooseItem(t *testing.T) {
	ch := &scriptedChooser{value: "0002", ok: true}
	e, _ := newEngine(t, Options{Chooser: ch})
	if got := mustDispatch(t, e, "chooseItem", nil).Value; got != "" {
		t.Fatalf("empty canvas should yield nothing; got %q", got)
	}
	e.CreateItem(model.ItemTypeNote, "a")
	e.CreateItem(model.ItemTypeProject, "b")

	res := mustDispatch(t, e, "chooseItem", args.Args{"prompt": "Which one?"})
	if res.Value != "0002" {
		t.Fatalf("expected 0002; got %+v", res)
	}
	if ch.titles[0] != "Which one?" || len(ch.choices[0]) != 2 || ch.choices[0][1].Label != "b" {
		t.Fatalf("unexpected prompt: %q %+v", ch.titles, ch.choices)
	}

	ch.ok = false
	if got := mustDispatch(t, e, "chooseItem", nil).Value; got != "" {
		t.Fatalf("cancel should yield nothing; got %q", got)
	}
	ch.ok, ch.value = true, "0404"
	if got := mustDispatch(t, e, "chooseItem", nil).Value; got != "" {
		t.Fatalf("stale selection should yield nothing; got %q", got)
	}
	ch.err = errors.New("terminal gone")
	if got := mustDispatch(t, e, "chooseItem", nil).Value; got != "" {
		t.Fatalf("chooser error should yield nothing; got %q", got)
	}
}

func TestChooseCardType(t *testing.T) {
	ch := &scriptedChooser{value: "story", ok: true}
	e, _ := newEngine(t, Options{Chooser: ch})
	res := mustDispatch(t, e, "chooseCardType", nil)
	if res.Kind != ResultStatus || res.Value != "story" {
		t.Fatalf("unexpected result %+v", res)
	}
	if ch.titles[0] != "Choose a card type" || len(ch.choices[0]) != len(model.ItemTypes) {
		t.Fatalf("unexpected prompt %q %+v", ch.titles, ch.choices)
	}

	noHuman, _ := newEngine(t, Options{})
	if got := mustDispatch(t, noHuman, "chooseCardType", nil).Value; got != "" {
		t.Fatalf("without a chooser the prompt is cancelled; got %q", got)
	}
}

func TestChoose_BlocksCommandStream(t *testing.T) {
	ch := &scriptedChooser{value: "note", ok: true, started: make(chan struct{}), release: make(chan struct{})}
	e, _ := newEngine(t, Options{Chooser: ch})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = e.Dispatch(context.Background(), "chooseCardType", nil)
	}()
	<-ch.started

	titled := make(chan struct{})
	go func() {
		defer wg.Done()
		_, _ = e.Dispatch(context.Background(), "setGlobalTitle", args.Args{"title": "after"})
		close(titled)
	}()

	select {
	case <-titled:
		t.Fatalf("command ran while the prompt was open")
	case <-time.After(50 * time.Millisecond):
	}
	close(ch.release)
	wg.Wait()
	if got := e.Snapshot().GlobalTitle; got != "after" {
		t.Fatalf("title = %q", got)
	}
}

type fakeImages struct {
	prompt string
	url    string
	err    error
}

func (f *fakeImages) GenerateImage(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.url, f.err
}

type fakeNarrator struct {
	text, voice string
	url         string
	err         error
}

func (f *fakeNarrator) Narrate(_ context.Context, text, voice string) (string, error) {
	f.text, f.voice = text, voice
	return f.url, f.err
}

func TestGenerateCharacterImage(t *testing.T) {
	img := &fakeImages{url: "https://img.example/pip.png"}
	e, _ := newEngine(t, Options{Images: img})
	cid, _ := e.CreateItem(model.ItemTypeCharacter, "Pip")
	e.SetField(cid, "description", "a brave little mouse")
	e.AddTrait(cid, "brave")
	nid, _ := e.CreateItem(model.ItemTypeNote, "n")

	res := mustDispatch(t, e, "generateCharacterImage", args.Args{"itemId": cid, "style": "watercolor"})
	if res.Value != img.url {
		t.Fatalf("unexpected result %+v", res)
	}
	for _, want := range []string{"Pip", "a brave little mouse", "brave", "watercolor"} {
		if !strings.Contains(img.prompt, want) {
			t.Fatalf("prompt missing %q: %s", want, img.prompt)
		}
	}
	it, _, _ := e.Snapshot().FindItem(cid)
	if it.Data.(model.CharacterData).ImageURL != img.url {
		t.Fatalf("image_url not written: %+v", it.Data)
	}

	if got := mustDispatch(t, e, "generateCharacterImage", args.Args{"itemId": nid}).Value; !strings.Contains(got, "not a character") {
		t.Fatalf("unexpected wrong-type message %q", got)
	}
	if got := mustDispatch(t, e, "generateCharacterImage", args.Args{"itemId": "0404"}).Value; !strings.Contains(got, "not found") {
		t.Fatalf("unexpected not-found message %q", got)
	}

	before := e.Snapshot()
	img.err = errors.New("quota exceeded")
	got := mustDispatch(t, e, "generateCharacterImage", args.Args{"itemId": cid}).Value
	if !strings.Contains(got, "quota exceeded") {
		t.Fatalf("expected failure message; got %q", got)
	}
	after, _, _ := e.Snapshot().FindItem(cid)
	prev, _, _ := before.FindItem(cid)
	if after.Data.(model.CharacterData).ImageURL != prev.Data.(model.CharacterData).ImageURL {
		t.Fatalf("failed generation touched the document")
	}

	unconfigured, _ := newEngine(t, Options{})
	id, _ := unconfigured.CreateItem(model.ItemTypeCharacter, "x")
	if got := unconfigured.GenerateCharacterImage(context.Background(), id, ""); !strings.Contains(got, "not configured") {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestGenerateSlideNarration(t *testing.T) {
	nar := &fakeNarrator{url: "/assets/a.mp3"}
	e, _ := newEngine(t, Options{Narrator: nar, Voice: "nova"})
	sid, _ := e.CreateItem(model.ItemTypeStory, "Tale")
	slide := e.AddSlide(sid, "Once upon a time", 0)
	blank := e.AddSlide(sid, "", 0)

	res := mustDispatch(t, e, "generateSlideNarration", args.Args{"itemId": sid, "slideId": slide})
	if res.Value != nar.url || nar.voice != "nova" || nar.text != "Once upon a time" {
		t.Fatalf("unexpected narration %+v %+v", res, nar)
	}
	it, _, _ := e.Snapshot().FindItem(sid)
	if it.Data.(model.StoryData).Slides[0].AudioURL != nar.url {
		t.Fatalf("audioUrl not written")
	}

	cases := map[string]args.Args{
		"no caption":    {"itemId": sid, "slideId": blank},
		"unknown voice": {"itemId": sid, "slideId": slide, "voice": "robot"},
		"not found":     {"itemId": sid, "slideId": "slide-0404"},
	}
	for want, a := range cases {
		if got := mustDispatch(t, e, "generateSlideNarration", a).Value; !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}

	nar.err = errors.New("tts down")
	if got := mustDispatch(t, e, "generateSlideNarration", args.Args{"itemId": sid, "slideId": slide, "voice": "Echo"}).Value; !strings.Contains(got, "tts down") {
		t.Fatalf("unexpected message %q", got)
	}
	if nar.voice != "echo" {
		t.Fatalf("voice should be normalized; got %q", nar.voice)
	}
}
