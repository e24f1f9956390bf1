// Package summarize turns queued jobs into structured summaries.
//
// Text jobs stream a response from the shared text session. Screenshot
// jobs try a multimodal session first and fall back to the OCR text when
// the image path cannot be used.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/mindmark/internal/domain"
	"github.com/MrSnakeDoc/mindmark/internal/logger"
	"github.com/MrSnakeDoc/mindmark/internal/model"
)

const (
	DefaultMaxContentChars   = 20000
	DefaultMaxImageDimension = 1920

	TruncationMarker = "\n\n[Content truncated for processing]"

	// ScreenshotPlaceholder is the OCR text producers store when nothing was recognized.
	ScreenshotPlaceholder = "[Screenshot]"

	EmptyScreenshotSummary = "Screenshot saved. Multimodal AI not available for visual analysis."
)

// Sessions is the slice of the model manager the strategies need.
type Sessions interface {
	TextSession(ctx context.Context, onProgress model.ProgressFunc) (model.Session, error)
	ImageSession(ctx context.Context) (model.Session, error)
}

type Options struct {
	MaxContentChars   int
	MaxImageDimension int

	// HTTPClient fetches screenshots given by URL. Defaults to a client
	// with a 30s timeout.
	HTTPClient *http.Client
}

type Summarizer struct {
	sessions Sessions
	log      logger.Logger
	client   *http.Client

	maxChars int
	maxDim   int
}

func New(sessions Sessions, opts Options, log logger.Logger) *Summarizer {
	if opts.MaxContentChars <= 0 {
		opts.MaxContentChars = DefaultMaxContentChars
	}
	if opts.MaxImageDimension <= 0 {
		opts.MaxImageDimension = DefaultMaxImageDimension
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Summarizer{
		sessions: sessions,
		log:      log,
		client:   opts.HTTPClient,
		maxChars: opts.MaxContentChars,
		maxDim:   opts.MaxImageDimension,
	}
}

// Text summarizes page content and labels its type.
// onProgress receives model download percentages when the model is fetched first.
func (s *Summarizer) Text(ctx context.Context, job domain.TextJob, onProgress model.ProgressFunc) (domain.Result, error) {
	session, err := s.sessions.TextSession(ctx, onProgress)
	if err != nil {
		return domain.Result{}, err
	}

	prompt := buildTextPrompt(job.Title, job.URL, truncate(job.Content, s.maxChars))
	response, err := stream(ctx, session, model.Prompt{Text: prompt})
	if err != nil {
		return domain.Result{}, fmt.Errorf("text prompt failed: %w", err)
	}

	p := ParseResponse(response, true)
	return domain.Result{
		Type:    p.Type,
		Tags:    p.Tags,
		Summary: p.Summary,
		Method:  domain.MethodText,
	}, nil
}

// Screenshot summarizes a screenshot. The result type is always Screenshot.
func (s *Summarizer) Screenshot(ctx context.Context, job domain.ScreenshotJob, onProgress model.ProgressFunc) (domain.Result, error) {
	res, err := s.multimodal(ctx, job)
	if err == nil {
		return res, nil
	}
	if !IsRecoverable(err) {
		return domain.Result{}, err
	}

	s.log.Info("multimodal summarization unavailable, using OCR text",
		logger.Int64("bookmark_id", job.ID),
		logger.Error(err))
	return s.ocrFallback(ctx, job, onProgress)
}

func (s *Summarizer) multimodal(ctx context.Context, job domain.ScreenshotJob) (domain.Result, error) {
	session, err := s.sessions.ImageSession(ctx)
	if err != nil {
		return domain.Result{}, err
	}

	raw, err := s.loadImage(ctx, job.Image)
	if err != nil {
		return domain.Result{}, err
	}
	img, err := prepareImage(raw, s.maxDim)
	if err != nil {
		return domain.Result{}, err
	}

	response, err := session.Prompt(ctx, model.Prompt{
		Text:   imagePrompt,
		Images: []model.Image{img},
	})
	if err != nil {
		return domain.Result{}, fmt.Errorf("image prompt failed: %w", err)
	}

	p := ParseResponse(response, false)
	return domain.Result{
		Type:    domain.TypeScreenshot,
		Tags:    p.Tags,
		Summary: p.Summary,
		Method:  domain.MethodMultimodal,
	}, nil
}

func (s *Summarizer) ocrFallback(ctx context.Context, job domain.ScreenshotJob, onProgress model.ProgressFunc) (domain.Result, error) {
	text := strings.TrimSpace(job.OCRText)
	if text == "" || text == ScreenshotPlaceholder {
		return domain.Result{
			Type:    domain.TypeScreenshot,
			Tags:    []string{},
			Summary: EmptyScreenshotSummary,
			Method:  domain.MethodOCRFallbackEmpty,
		}, nil
	}

	session, err := s.sessions.TextSession(ctx, onProgress)
	if err != nil {
		return domain.Result{}, err
	}

	response, err := stream(ctx, session, model.Prompt{Text: buildOCRPrompt(job.OCRText)})
	if err != nil {
		return domain.Result{}, fmt.Errorf("ocr prompt failed: %w", err)
	}

	p := ParseResponse(response, false)
	return domain.Result{
		Type:    domain.TypeScreenshot,
		Tags:    p.Tags,
		Summary: p.Summary,
		Method:  domain.MethodOCRFallback,
	}, nil
}

var recoverableSentinels = []error{
	model.ErrMultimodalUnavailable,
	model.ErrNotSupported,
	model.ErrResourceExhausted,
	model.ErrInputTooLarge,
	model.ErrOperation,
}

var recoverableMessages = []string{
	"unable to create a session",
	"device is unable",
	"input is too large",
	"does not support images",
}

// IsRecoverable reports whether a multimodal failure should fall back to OCR text.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range recoverableSentinels {
		if errors.Is(err, target) {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, m := range recoverableMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func stream(ctx context.Context, session model.Session, p model.Prompt) (string, error) {
	var b strings.Builder
	err := session.PromptStreaming(ctx, p, func(chunk string) error {
		b.WriteString(chunk)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// truncate cuts content to limit runes and appends TruncationMarker when it does.
func truncate(content string, limit int) string {
	n := 0
	for i := range content {
		if n == limit {
			return content[:i] + TruncationMarker
		}
		n++
	}
	return content
}
