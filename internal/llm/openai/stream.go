package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"applyforge-backend/internal/llm"
)

type streamChunk struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage,omitempty"`
}

// CompleteStream sends a streaming completion request and invokes onDelta for
// every non-empty content delta in arrival order. The provider terminates the
// stream with a "[DONE]" sentinel.
func (c *Client) CompleteStream(ctx context.Context, req llm.Request, onDelta func(delta string) error) (llm.Usage, error) {
	resp, err := c.send(ctx, req, true)
	if err != nil {
		return llm.Usage{}, err
	}
	defer resp.Body.Close()

	var usage llm.Usage
	model := c.model

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			logUsage(model, usage)
			return usage, nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return usage, fmt.Errorf("openai stream chunk parse: %w", err)
		}
		if chunk.Model != "" {
			model = chunk.Model
		}
		if chunk.Usage != nil {
			usage = llm.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			if err := onDelta(delta); err != nil {
				return usage, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return usage, ctx.Err()
		}
		return usage, fmt.Errorf("%w: read stream: %v", llm.ErrUpstreamUnavailable, err)
	}

	// Stream ended without the [DONE] sentinel, which is what a dropped
	// upstream connection looks like.
	return usage, fmt.Errorf("%w: stream ended without done sentinel", llm.ErrUpstreamUnavailable)
}
