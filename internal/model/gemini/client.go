package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arampall/intelligent-document-extraction/internal/model"
)

// ExtractFields implements model.FieldExtractor: it attaches every page
// image of the document plus the OCR text, requests structured JSON
// constrained by the doc type schema, then validates and repairs the output.
func (c *Client) ExtractFields(ctx context.Context, req model.ExtractRequest) (model.Result, error) {
	rid := uuid.New().String()
	start := time.Now()
	res := model.Result{DocType: req.DocType}

	c.log.Info("model.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"doc_type", string(req.DocType),
		"pages", len(req.PagePaths),
		"ocr_bytes", len(req.OCRText),
		"prep_confidence", req.PrepConfidence,
		"allowed_categories", len(req.AllowedCategories),
	)

	schema := model.BuildSchema(req.DocType, req.AllowedCategories)

	parts, warn, err := c.buildImageParts(req.PagePaths)
	if err != nil {
		return res, err
	}
	for _, w := range warn {
		c.log.Warn("model.extract.page_skipped", "req_id", rid, "reason", w)
	}
	if len(parts) == 0 {
		return res, fmt.Errorf("no usable page images")
	}
	parts = append(parts, part{Text: buildUserPrompt(req)})

	body := generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		SystemInstruction: &content{
			Parts: []part{{Text: buildSystemPrompt(req)}},
		},
		GenerationConfig: generationConfig{
			Temperature:      c.cfg.Temperature,
			MaxOutputTokens:  c.cfg.MaxOutputTokens,
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
	}

	resp, raw, err := c.generate(ctx, rid, &body)
	if err != nil {
		c.log.Error("model.extract.request_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		res.Raw = raw
		return res, err
	}

	res.Usage = model.Usage{
		Prompt:   resp.UsageMetadata.PromptTokenCount,
		Thoughts: resp.UsageMetadata.ThoughtsTokenCount,
		Output:   resp.UsageMetadata.CandidatesTokenCount,
		Total:    resp.UsageMetadata.TotalTokenCount,
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		c.log.Error("model.extract.no_candidates", "req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds())
		return res, fmt.Errorf("no candidates in response")
	}
	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	rawContent := []byte(model.StripFences(text.String()))
	res.Raw = rawContent

	cleaned, dropped, err := model.NormalizeAndSanitizeJSON(req.DocType, rawContent, c.log)
	if err != nil {
		c.log.Error("model.extract.sanitize_failed",
			"req_id", rid, "error", err, "content", string(rawContent),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return res, fmt.Errorf("sanitize output: %w", err)
	}
	if len(dropped) > 0 {
		c.log.Warn("model.extract.sanitized", "req_id", rid, "dropped", dropped)
	}

	// Validate strictly first.
	if err := model.ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		if !c.cfg.LenientOptional {
			c.log.Error("model.extract.schema_validation_failed",
				"req_id", rid, "error", err, "content", string(cleaned),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			res.Raw = cleaned
			return res, fmt.Errorf("schema validation failed: %w", err)
		}
		// Try a lenient sanitize: drop/normalize optional offenders and re-validate.
		lenient, dropped2, sErr := model.SanitizeOptionalFields(req.DocType, cleaned)
		if sErr != nil {
			c.log.Error("model.extract.lenient_sanitize_failed",
				"req_id", rid, "error", sErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			res.Raw = cleaned
			return res, fmt.Errorf("lenient sanitize: %w", sErr)
		}
		if vErr := model.ValidateJSONAgainstSchema(schema, lenient); vErr != nil {
			c.log.Error("model.extract.schema_validation_failed",
				"req_id", rid, "error", vErr, "content", string(lenient),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			res.Raw = lenient
			return res, fmt.Errorf("schema validation failed: %w", vErr)
		}
		c.log.Warn("model.extract.lenient_sanitize_applied",
			"req_id", rid, "dropped", dropped2,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		cleaned = lenient
	}
	res.Raw = cleaned

	if err := res.DecodeFields(cleaned); err != nil {
		c.log.Error("model.extract.unmarshal_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return res, fmt.Errorf("unmarshal fields: %w", err)
	}

	c.log.Info("model.extract.ok",
		"req_id", rid,
		"doc_type", string(req.DocType),
		"tokens_total", res.Usage.Total,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// generate posts the request with bounded retries and exponential backoff.
// 429 and 5xx retry; a 400 that rejects the response schema retries once
// without it; other 4xx fail fast.
func (c *Client) generate(ctx context.Context, rid string, body *generateRequest) (*generateResponse, []byte, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model, c.cfg.APIKey)

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			c.log.Warn("model.generate.retry",
				"req_id", rid, "attempt", attempt, "backoff", backoff.String(), "cause", lastErr)
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		c.pace()

		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal request: %w", err)
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		if err != nil {
			return nil, nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			lastErr = fmt.Errorf("gemini http error: %w", err)
			continue
		}
		raw, err := io.ReadAll(httpResp.Body)
		_ = httpResp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case httpResp.StatusCode == http.StatusOK:
			var out generateResponse
			if err := json.Unmarshal(raw, &out); err != nil {
				return nil, raw, fmt.Errorf("decode gemini response: %w", err)
			}
			if out.Error != nil {
				return nil, raw, fmt.Errorf("gemini api error %d: %s", out.Error.Code, out.Error.Message)
			}
			return &out, raw, nil

		case httpResp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("gemini status 429: %s", truncateBody(raw))
			continue

		case httpResp.StatusCode >= 500:
			lastErr = fmt.Errorf("gemini status %d: %s", httpResp.StatusCode, truncateBody(raw))
			continue

		case httpResp.StatusCode == http.StatusBadRequest && body.GenerationConfig.ResponseSchema != nil &&
			mentionsResponseSchema(raw):
			// Some models reject responseJsonSchema; retry without it.
			body.GenerationConfig.ResponseSchema = nil
			lastErr = fmt.Errorf("request rejected structured output, retrying without response schema")
			continue

		default:
			return nil, raw, fmt.Errorf("gemini status %d: %s", httpResp.StatusCode, truncateBody(raw))
		}
	}
	return nil, nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func mentionsResponseSchema(body []byte) bool {
	s := string(body)
	return strings.Contains(s, "responseJsonSchema") || strings.Contains(s, "responseMimeType") ||
		strings.Contains(s, "response_json_schema") || strings.Contains(s, "response_mime_type")
}

func truncateBody(b []byte) string {
	const max = 2048
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "...(truncated)"
}

// buildImageParts reads the page images in order into inline data parts.
// Oversized or unreadable pages are skipped with a warning.
func (c *Client) buildImageParts(pages []string) ([]part, []string, error) {
	parts := make([]part, 0, len(pages)+1)
	var warns []string
	maxBytes := int64(c.cfg.MaxImageMB) << 20
	for _, p := range pages {
		st, err := os.Stat(p)
		if err != nil {
			warns = append(warns, fmt.Sprintf("%s: %v", p, err))
			continue
		}
		if st.Size() > maxBytes {
			warns = append(warns, fmt.Sprintf("%s: exceeds %dMB", p, c.cfg.MaxImageMB))
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			warns = append(warns, fmt.Sprintf("%s: %v", p, err))
			continue
		}
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: mimeTypeFor(p),
			Data:     base64.StdEncoding.EncodeToString(data),
		}})
	}
	return parts, warns, nil
}

func mimeTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	switch strings.TrimPrefix(ext, ".") {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
