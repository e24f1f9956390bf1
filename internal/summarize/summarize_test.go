package summarize

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/mindmark/internal/domain"
	"github.com/MrSnakeDoc/mindmark/internal/logger"
	"github.com/MrSnakeDoc/mindmark/internal/model"
)

type fakeSession struct {
	response string
	err      error
	prompts  []model.Prompt
}

func (f *fakeSession) Prompt(_ context.Context, p model.Prompt) (string, error) {
	f.prompts = append(f.prompts, p)
	return f.response, f.err
}

func (f *fakeSession) PromptStreaming(_ context.Context, p model.Prompt, onChunk func(string) error) error {
	f.prompts = append(f.prompts, p)
	if f.err != nil {
		return f.err
	}
	// Deliver in small pieces so the strategies have to concatenate.
	for r := f.response; r != ""; {
		n := min(3, len(r))
		if err := onChunk(r[:n]); err != nil {
			return err
		}
		r = r[n:]
	}
	return nil
}

type fakeSessions struct {
	text     *fakeSession
	textErr  error
	image    *fakeSession
	imageErr error

	textCalls  int
	imageCalls int
}

func (f *fakeSessions) TextSession(_ context.Context, onProgress model.ProgressFunc) (model.Session, error) {
	f.textCalls++
	if onProgress != nil {
		onProgress(100)
	}
	if f.textErr != nil {
		return nil, f.textErr
	}
	return f.text, nil
}

func (f *fakeSessions) ImageSession(context.Context) (model.Session, error) {
	f.imageCalls++
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return f.image, nil
}

func newSummarizer(s Sessions) *Summarizer {
	return New(s, Options{}, logger.New("error", false))
}

func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestTextStrategy(t *testing.T) {
	session := &fakeSession{response: "TYPE: Tutorial\nTAGS: Go, Testing, CI, Extra\nSUMMARY: How to test."}
	s := newSummarizer(&fakeSessions{text: session})

	var progress []int
	res, err := s.Text(context.Background(), domain.TextJob{
		ID: 1, Title: "Testing in Go", URL: "https://go.dev/doc/tutorial", Content: "body",
	}, func(p int) { progress = append(progress, p) })
	require.NoError(t, err)

	assert.Equal(t, domain.Result{
		Type:    "Tutorial",
		Tags:    []string{"Go", "Testing", "CI"},
		Summary: "How to test.",
		Method:  domain.MethodText,
	}, res)
	assert.Equal(t, []int{100}, progress, "progress callback is passed to the session manager")

	require.Len(t, session.prompts, 1)
	prompt := session.prompts[0].Text
	assert.Contains(t, prompt, "Title: Testing in Go")
	assert.Contains(t, prompt, "URL: https://go.dev/doc/tutorial")
	assert.Contains(t, prompt, "LinkedIn Job, Facebook")
	assert.Contains(t, prompt, "Product, or Other]")
}

func TestTextStrategyTruncatesContent(t *testing.T) {
	session := &fakeSession{response: "SUMMARY: ok"}
	s := New(&fakeSessions{text: session}, Options{MaxContentChars: 10}, logger.New("error", false))

	_, err := s.Text(context.Background(), domain.TextJob{ID: 1, Content: strings.Repeat("x", 50)}, nil)
	require.NoError(t, err)

	prompt := session.prompts[0].Text
	assert.Contains(t, prompt, strings.Repeat("x", 10)+TruncationMarker)
	assert.NotContains(t, prompt, strings.Repeat("x", 11))
}

func TestTextStrategyErrors(t *testing.T) {
	t.Run("model unavailable", func(t *testing.T) {
		s := newSummarizer(&fakeSessions{textErr: model.ErrModelUnavailable})
		_, err := s.Text(context.Background(), domain.TextJob{ID: 1, Content: "x"}, nil)
		assert.ErrorIs(t, err, model.ErrModelUnavailable)
	})

	t.Run("prompt failure", func(t *testing.T) {
		boom := errors.New("boom")
		s := newSummarizer(&fakeSessions{text: &fakeSession{err: boom}})
		_, err := s.Text(context.Background(), domain.TextJob{ID: 1, Content: "x"}, nil)
		assert.ErrorIs(t, err, boom)
	})
}

func TestScreenshotMultimodal(t *testing.T) {
	vision := &fakeSession{response: "TYPE: Blog\nTAGS: dashboard, metrics\nSUMMARY: A Grafana board."}
	sessions := &fakeSessions{image: vision, text: &fakeSession{}}
	s := newSummarizer(sessions)

	res, err := s.Screenshot(context.Background(), domain.ScreenshotJob{
		ID: 2, Image: pngDataURI(t, 20, 10), OCRText: "[Screenshot]",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.TypeScreenshot, res.Type, "screenshots are never relabelled")
	assert.Equal(t, []string{"dashboard", "metrics"}, res.Tags)
	assert.Equal(t, "A Grafana board.", res.Summary)
	assert.Equal(t, domain.MethodMultimodal, res.Method)
	assert.Zero(t, sessions.textCalls)

	require.Len(t, vision.prompts, 1)
	require.Len(t, vision.prompts[0].Images, 1)
	assert.Equal(t, "image/png", vision.prompts[0].Images[0].MIME)
}

func TestScreenshotFallsBackToOCR(t *testing.T) {
	tests := []struct {
		name     string
		sessions *fakeSessions
		image    string
	}{
		{
			name:     "multimodal unavailable",
			sessions: &fakeSessions{imageErr: model.ErrMultimodalUnavailable},
		},
		{
			name:     "model rejects images",
			sessions: &fakeSessions{image: &fakeSession{err: errors.New("model does not support images")}},
		},
		{
			name:     "input too large",
			sessions: &fakeSessions{image: &fakeSession{err: model.ErrInputTooLarge}},
		},
		{
			name:     "undecodable image",
			sessions: &fakeSessions{image: &fakeSession{}},
			image:    "data:image/png;base64,bm90IGFuIGltYWdl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.sessions.text = &fakeSession{response: "TAGS: invoice\nSUMMARY: An invoice."}
			img := tt.image
			if img == "" {
				img = pngDataURI(t, 4, 4)
			}

			res, err := newSummarizer(tt.sessions).Screenshot(context.Background(), domain.ScreenshotJob{
				ID: 3, Image: img, OCRText: "[Screenshot]\n\nInvoice #42 total $10",
			}, nil)
			require.NoError(t, err)

			assert.Equal(t, domain.MethodOCRFallback, res.Method)
			assert.Equal(t, domain.TypeScreenshot, res.Type)
			assert.Equal(t, []string{"invoice"}, res.Tags)
			assert.Equal(t, "An invoice.", res.Summary)
			assert.Contains(t, tt.sessions.text.prompts[0].Text, "Invoice #42 total $10")
		})
	}
}

func TestScreenshotEmptyOCRSkipsModel(t *testing.T) {
	for _, ocr := range []string{"", "  [Screenshot]  "} {
		sessions := &fakeSessions{imageErr: model.ErrMultimodalUnavailable}

		res, err := newSummarizer(sessions).Screenshot(context.Background(), domain.ScreenshotJob{ID: 4, OCRText: ocr}, nil)
		require.NoError(t, err)

		assert.Equal(t, EmptyScreenshotSummary, res.Summary)
		assert.Empty(t, res.Tags)
		assert.Equal(t, domain.MethodOCRFallbackEmpty, res.Method)
		assert.Zero(t, sessions.textCalls, "no text session for an empty OCR fallback")
	}
}

func TestScreenshotPropagatesOtherErrors(t *testing.T) {
	boom := errors.New("connection reset by peer")
	sessions := &fakeSessions{image: &fakeSession{err: boom}}

	_, err := newSummarizer(sessions).Screenshot(context.Background(), domain.ScreenshotJob{
		ID: 5, Image: pngDataURI(t, 4, 4), OCRText: "text",
	}, nil)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, sessions.textCalls)
}

func TestScreenshotFetchesURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		img := image.NewRGBA(image.Rect(0, 0, 8, 8))
		_ = png.Encode(w, img)
	}))
	t.Cleanup(srv.Close)

	vision := &fakeSession{response: "SUMMARY: remote"}
	res, err := newSummarizer(&fakeSessions{image: vision}).Screenshot(context.Background(), domain.ScreenshotJob{
		ID: 6, Image: srv.URL + "/shot.png",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "remote", res.Summary)
	assert.Equal(t, domain.MethodMultimodal, res.Method)
}

func TestPrepareImage(t *testing.T) {
	encode := func(w, h int) []byte {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
		return buf.Bytes()
	}

	t.Run("small image passed through", func(t *testing.T) {
		raw := encode(100, 50)
		img, err := prepareImage(raw, 1920)
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.MIME)
		assert.Equal(t, raw, img.Data)
	})

	t.Run("large image scaled to fit", func(t *testing.T) {
		img, err := prepareImage(encode(3840, 1000), 1920)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", img.MIME)

		cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, 1920, cfg.Width)
		assert.Equal(t, 500, cfg.Height, "aspect ratio is preserved")
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := prepareImage([]byte("nope"), 1920)
		assert.ErrorIs(t, err, model.ErrOperation)
	})
}

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: nil, want: false},
		{err: model.ErrMultimodalUnavailable, want: true},
		{err: model.ErrNotSupported, want: true},
		{err: model.ErrResourceExhausted, want: true},
		{err: model.ErrOperation, want: true},
		{err: errors.New("The device is unable to create a session"), want: true},
		{err: errors.New("Input is too large"), want: true},
		{err: model.ErrModelUnavailable, want: false},
		{err: errors.New("timeout"), want: false},
	}

	for _, tt := range tests {
		if got := IsRecoverable(tt.err); got != tt.want {
			t.Errorf("IsRecoverable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
