package openai

import "disputedesk-hq/guardrail/pkg/llm"

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func toRequest(cfg Config, messages []llm.Message) *chatRequest {
	req := &chatRequest{
		Model:       cfg.Model,
		Messages:    make([]chatMessage, len(messages)),
		Temperature: cfg.Temperature,
	}
	for i, m := range messages {
		req.Messages[i] = chatMessage{Role: string(m.Role), Content: m.Content}
	}
	return req
}

// fromResponse takes the first choice. A response with no choices has empty
// content, which the caller treats as a fallback reply.
func fromResponse(resp *chatResponse, model string) *llm.Response {
	out := &llm.Response{
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}
	if out.Model == "" {
		out.Model = model
	}
	if out.TokensUsed == 0 {
		out.TokensUsed = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
	}
	return out
}
