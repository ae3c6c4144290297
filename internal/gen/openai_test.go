package gen

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"canvas-cli/internal/store"
)

type fakeAPI struct {
	imageCalls  atomic.Int32
	speechCalls atomic.Int32
	imageResp   openai.ImageResponse
	imageErr    error
	lastImage   openai.ImageRequest
	lastSpeech  openai.CreateSpeechRequest
	mu          sync.Mutex
	gate        chan struct{}
}

func (f *fakeAPI) CreateImage(_ context.Context, req openai.ImageRequest) (openai.ImageResponse, error) {
	f.imageCalls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.lastImage = req
	f.mu.Unlock()
	return f.imageResp, f.imageErr
}

func (f *fakeAPI) CreateSpeech(_ context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error) {
	f.speechCalls.Add(1)
	f.mu.Lock()
	f.lastSpeech = req
	f.mu.Unlock()
	return openai.RawResponse{ReadCloser: io.NopCloser(strings.NewReader("ID3-audio"))}, nil
}

func testClient(t *testing.T, api API) (*Client, DirAssets) {
	t.Helper()
	assets := DirAssets{Dir: filepath.Join(t.TempDir(), "assets"), BaseURL: "/assets"}
	cfg := store.DefaultConfig().Generation
	cfg.RequestsPerMinute = 0
	return New(api, cfg, assets, nil), assets
}

func TestGenerateImage_URL(t *testing.T) {
	api := &fakeAPI{imageResp: openai.ImageResponse{Data: []openai.ImageResponseDataInner{{URL: "https://img/x.png"}}}}
	c, _ := testClient(t, api)

	url, err := c.GenerateImage(context.Background(), "a mouse")
	require.NoError(t, err)
	require.Equal(t, "https://img/x.png", url)
	require.Equal(t, "dall-e-3", api.lastImage.Model)
	require.Equal(t, "1024x1024", api.lastImage.Size)
	require.Equal(t, "a mouse", api.lastImage.Prompt)
}

func TestGenerateImage_InlineDataIsStored(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("PNGDATA"))
	api := &fakeAPI{imageResp: openai.ImageResponse{Data: []openai.ImageResponseDataInner{{B64JSON: payload}}}}
	c, assets := testClient(t, api)

	url, err := c.GenerateImage(context.Background(), "a mouse")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/assets/"))
	require.True(t, strings.HasSuffix(url, ".png"))

	b, err := os.ReadFile(filepath.Join(assets.Dir, strings.TrimPrefix(url, "/assets/")))
	require.NoError(t, err)
	require.Equal(t, "PNGDATA", string(b))
}

func TestGenerateImage_Errors(t *testing.T) {
	api := &fakeAPI{imageErr: errors.New("quota")}
	c, _ := testClient(t, api)
	_, err := c.GenerateImage(context.Background(), "x")
	require.ErrorContains(t, err, "quota")

	api.imageErr = nil
	_, err = c.GenerateImage(context.Background(), "x")
	require.ErrorContains(t, err, "empty response")
}

func TestGenerateImage_CollapsesConcurrentDuplicates(t *testing.T) {
	api := &fakeAPI{
		imageResp: openai.ImageResponse{Data: []openai.ImageResponseDataInner{{URL: "u"}}},
		gate:      make(chan struct{}),
	}
	c, _ := testClient(t, api)

	var wg sync.WaitGroup
	results := make([]string, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.GenerateImage(context.Background(), "same prompt")
		}(i)
	}
	require.Eventually(t, func() bool { return api.imageCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(api.gate)
	wg.Wait()

	require.Equal(t, []string{"u", "u", "u"}, results)
	require.LessOrEqual(t, api.imageCalls.Load(), int32(3))
}

func TestNarrate_StoresAudio(t *testing.T) {
	api := &fakeAPI{}
	c, assets := testClient(t, api)

	url, err := c.Narrate(context.Background(), "Once upon a time", "")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(url, ".mp3"))
	require.Equal(t, openai.SpeechVoice("alloy"), api.lastSpeech.Voice)
	require.Equal(t, openai.SpeechModel("tts-1"), api.lastSpeech.Model)
	require.Equal(t, openai.SpeechResponseFormatMp3, api.lastSpeech.ResponseFormat)

	b, err := os.ReadFile(filepath.Join(assets.Dir, filepath.Base(url)))
	require.NoError(t, err)
	require.Equal(t, "ID3-audio", string(b))
}

func TestNewFromEnv_RequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewFromEnv(store.DefaultConfig().Generation, DirAssets{}, nil)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestLimiter_CancelledContext(t *testing.T) {
	api := &fakeAPI{imageResp: openai.ImageResponse{Data: []openai.ImageResponseDataInner{{URL: "u"}}}}
	cfg := store.DefaultConfig().Generation
	cfg.RequestsPerMinute = 1
	c := New(api, cfg, DirAssets{}, nil)

	_, err := c.GenerateImage(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.GenerateImage(ctx, "second")
	require.Error(t, err)
	require.Equal(t, int32(1), api.imageCalls.Load())
}
