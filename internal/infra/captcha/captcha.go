// Package captcha verifies human-verification tokens against a
// reCAPTCHA-compatible siteverify endpoint.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sifan077/ShortcutURL/config"
)

const defaultTimeout = 5 * time.Second

// Verifier calls the siteverify endpoint.
type Verifier struct {
	client    *http.Client
	secret    string
	verifyURL string
}

// New returns a Verifier for cfg.
func New(cfg config.CaptchaConfig) *Verifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Verifier{
		client:    &http.Client{Timeout: timeout},
		secret:    cfg.Secret,
		verifyURL: cfg.VerifyURL,
	}
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify reports whether the provider accepted token. A non-nil error means
// the provider could not give an answer.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	form := url.Values{
		"secret":   {v.secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("captcha: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("captcha: siteverify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, fmt.Errorf("captcha: siteverify returned %s", resp.Status)
	}

	var out verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		return false, fmt.Errorf("captcha: decode response: %w", err)
	}
	return out.Success, nil
}
