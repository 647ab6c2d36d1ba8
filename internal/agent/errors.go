package agent

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"medtriage/internal/triage"
)

// classifyError maps provider errors onto the pipeline's taxonomy:
// quota and 429 responses become triage.ErrRateLimited, everything else
// triage.ErrTransport. The original error stays in the chain.
func classifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, triage.ErrRateLimited) || errors.Is(err, triage.ErrTransport) {
		return err
	}
	if isRateLimit(err) {
		return fmt.Errorf("%s: %w: %w", provider, triage.ErrRateLimited, err)
	}
	return fmt.Errorf("%s: %w: %w", provider, triage.ErrTransport, err)
}

func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) && genaiErr.Code == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota")
}
