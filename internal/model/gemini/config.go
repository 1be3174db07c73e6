package gemini

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/arampall/intelligent-document-extraction/constants"
)

type Config struct {
	BaseURL     string  // default https://generativelanguage.googleapis.com/v1beta
	Model       string  // default gemini-2.0-flash-exp
	APIKey      string  // required
	Temperature float32 // default 0.0

	Timeout time.Duration // per-request HTTP timeout, default 90s

	// MaxRetries bounds retry attempts after the first try. Retries apply
	// to transport errors, 429 and 5xx, with exponential backoff.
	MaxRetries int

	// MinInterval paces requests: a call blocks until at least this long
	// after the previous request started.
	MinInterval time.Duration

	MaxOutputTokens int
	MaxImageMB      int // per-page inline image size gate

	// LenientOptional retries schema validation after dropping optional
	// offenders instead of failing the document outright.
	LenientOptional bool
}

// Client implements model.FieldExtractor against the Gemini generateContent API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger

	mu          sync.Mutex
	lastRequest time.Time
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash-exp"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 8192
	}
	if cfg.MaxImageMB <= 0 {
		cfg.MaxImageMB = constants.MaxVisionMBDefault
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}

// pace blocks until MinInterval has elapsed since the previous request.
func (c *Client) pace() {
	if c.cfg.MinInterval <= 0 {
		return
	}
	c.mu.Lock()
	wait := c.cfg.MinInterval - time.Since(c.lastRequest)
	if wait > 0 {
		time.Sleep(wait)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()
}
