// Package gen talks to the external image and speech services. Calls are rate
// limited, and identical requests in flight at the same time share one call.
package gen

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"canvas-cli/internal/store"
)

var ErrNotConfigured = errors.New("OPENAI_API_KEY is not set")

// API is the subset of the OpenAI client used here.
type API interface {
	CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error)
	CreateSpeech(ctx context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error)
}

type Client struct {
	api     API
	cfg     store.GenerationConfig
	assets  DirAssets
	limiter *rate.Limiter
	flight  singleflight.Group
	log     *zap.Logger
}

// NewFromEnv builds a client from OPENAI_API_KEY (and OPENAI_BASE_URL when set).
func NewFromEnv(cfg store.GenerationConfig, assets DirAssets, log *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	oc := openai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); base != "" {
		oc.BaseURL = base
	}
	return New(openai.NewClientWithConfig(oc), cfg, assets, log), nil
}

func New(api API, cfg store.GenerationConfig, assets DirAssets, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	return &Client{
		api:     api,
		cfg:     cfg,
		assets:  assets,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// GenerateImage returns a URL for an image rendered from prompt. Inline
// (base64) responses are saved as assets.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	v, err, shared := c.flight.Do("image\x00"+prompt, func() (any, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
			Prompt:         prompt,
			Model:          c.cfg.ImageModel,
			N:              1,
			Size:           c.cfg.ImageSize,
			ResponseFormat: openai.CreateImageResponseFormatURL,
		})
		if err != nil {
			return "", fmt.Errorf("create image: %w", err)
		}
		if len(resp.Data) == 0 {
			return "", errors.New("create image: empty response")
		}
		d := resp.Data[0]
		if d.URL != "" {
			return d.URL, nil
		}
		if d.B64JSON == "" {
			return "", errors.New("create image: response has neither url nor data")
		}
		raw, err := base64.StdEncoding.DecodeString(d.B64JSON)
		if err != nil {
			return "", fmt.Errorf("decode image: %w", err)
		}
		return c.assets.Put("png", bytes.NewReader(raw))
	})
	if shared {
		c.log.Debug("image request shared with an in-flight call")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Narrate synthesizes text with voice, stores the mp3 and returns its URL.
func (c *Client) Narrate(ctx context.Context, text, voice string) (string, error) {
	if voice == "" {
		voice = c.cfg.Voice
	}
	v, err, _ := c.flight.Do("speech\x00"+voice+"\x00"+text, func() (any, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          openai.SpeechModel(c.cfg.SpeechModel),
			Input:          text,
			Voice:          openai.SpeechVoice(voice),
			ResponseFormat: openai.SpeechResponseFormatMp3,
		})
		if err != nil {
			return "", fmt.Errorf("create speech: %w", err)
		}
		defer resp.Close()
		return c.assets.Put("mp3", resp)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
