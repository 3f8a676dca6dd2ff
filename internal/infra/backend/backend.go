// Package backend delivers objectified stories to the insert endpoint as a
// multipart upload: the article JSON in a form field plus the cover image
// file when one exists.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"veritasnews/internal/domain/entity"
	"veritasnews/internal/resilience/circuitbreaker"
	"veritasnews/internal/resilience/retry"
)

// Sender uploads stories to the backend insert endpoint.
type Sender struct {
	insertURL      string
	httpClient     *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewSender creates a Sender for the given insert endpoint. An empty URL
// disables delivery; Send becomes a logged no-op.
func NewSender(insertURL string, httpClient *http.Client) *Sender {
	return &Sender{
		insertURL:      insertURL,
		httpClient:     httpClient,
		circuitBreaker: circuitbreaker.New(circuitbreaker.DefaultConfig("backend-insert")),
		retryConfig:    retry.DefaultConfig(),
	}
}

// Enabled reports whether an insert endpoint is configured.
func (s *Sender) Enabled() bool {
	return s.insertURL != ""
}

// wireArticle is the upload shape: identical to ObjectifiedArticle except
// that the source list collapses to one comma-separated string.
type wireArticle struct {
	entity.ObjectifiedArticle
	Source string `json:"source"`
}

// Send uploads one story. imagePath may name a file that does not exist;
// the upload then goes without an image part. Success is the backend's
// 201 response.
func (s *Sender) Send(ctx context.Context, article *entity.ObjectifiedArticle, imagePath string) error {
	if !s.Enabled() {
		slog.Info("backend delivery disabled, keeping article local",
			slog.String("article_id", article.ArticleID))
		return nil
	}

	payload, err := json.Marshal(wireArticle{
		ObjectifiedArticle: *article,
		Source:             strings.Join(article.Source, ", "),
	})
	if err != nil {
		return fmt.Errorf("marshal article %s: %w", article.ArticleID, err)
	}

	var imageBytes []byte
	if imagePath != "" {
		if data, err := os.ReadFile(imagePath); err == nil {
			imageBytes = data
		}
	}

	retryErr := retry.WithBackoff(ctx, s.retryConfig, func() error {
		_, err := s.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, s.doSend(ctx, payload, imageBytes)
		})
		if err != nil && errors.Is(err, gobreaker.ErrOpenState) {
			slog.Warn("backend circuit breaker open, upload rejected",
				slog.String("article_id", article.ArticleID))
		}
		return err
	})

	if retryErr != nil {
		return fmt.Errorf("send article %s: %w", article.ArticleID, retryErr)
	}
	return nil
}

// doSend performs one multipart POST without retry or circuit breaker.
func (s *Sender) doSend(ctx context.Context, payload, imageBytes []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("data", string(payload)); err != nil {
		return fmt.Errorf("write data field: %w", err)
	}
	if imageBytes != nil {
		part, err := mw.CreateFormFile("image", "image.jpg")
		if err != nil {
			return fmt.Errorf("create image part: %w", err)
		}
		if _, err := part.Write(imageBytes); err != nil {
			return fmt.Errorf("write image part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.insertURL, &body)
	if err != nil {
		return fmt.Errorf("create insert request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("insert request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("backend returned %s: %s", resp.Status, respBody),
		}
	}

	slog.Info("article uploaded",
		slog.Duration("duration", time.Since(start)))
	return nil
}
