package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MockResponse is one scripted reply. Err takes precedence over Message.
type MockResponse struct {
	Message ChatMessage
	Err     error
}

// MockClient is a mock implementation of LLMClient. Scripted replies are
// served in order; once exhausted it falls back to canned replies.
type MockClient struct {
	mu       sync.Mutex
	script   []MockResponse
	requests []ChatCompletionRequest
}

// NewMockClient creates a new mock LLM client with optional scripted replies.
func NewMockClient(script ...MockResponse) *MockClient {
	return &MockClient{script: script}
}

// Text builds a scripted assistant text reply.
func Text(content string) MockResponse {
	return MockResponse{Message: ChatMessage{Role: RoleAssistant, Content: content}}
}

// Calls builds a scripted assistant reply requesting tool calls.
func Calls(calls ...ToolCall) MockResponse {
	return MockResponse{Message: ChatMessage{Role: RoleAssistant, ToolCalls: calls}}
}

// Call builds a function tool call.
func Call(id, name, arguments string) ToolCall {
	return ToolCall{ID: id, Type: "function", Function: ToolCallFunction{Name: name, Arguments: arguments}}
}

// Failure builds a scripted transport failure.
func Failure(err error) MockResponse {
	return MockResponse{Err: err}
}

// CreateChatCompletion returns the next scripted reply or a canned one.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.requests = append(m.requests, cloneRequest(req))
	var next *MockResponse
	if len(m.script) > 0 {
		next = &m.script[0]
		m.script = m.script[1:]
	}
	m.mu.Unlock()

	var msg ChatMessage
	switch {
	case next != nil && next.Err != nil:
		return nil, next.Err
	case next != nil:
		msg = next.Message
	default:
		msg = ChatMessage{Role: RoleAssistant, Content: m.generateMockResponse(req)}
	}

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{{Index: 0, Message: &msg, FinishReason: "stop"}},
		Usage: &Usage{
			PromptTokens:     estimateTokens(req),
			CompletionTokens: len(msg.Content) / 4,
			TotalTokens:      estimateTokens(req) + len(msg.Content)/4,
		},
	}, nil
}

// Requests returns a copy of every request received so far.
func (m *MockClient) Requests() []ChatCompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChatCompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	if req.ResponseFormat != nil {
		report := map[string]interface{}{
			"product_name":         "Mock product",
			"ingredient_list":      []string{},
			"safety_score":         100,
			"safety_flag":          "Low risk",
			"explanation_short":    "[MOCK] No issues found.",
			"explanation_detailed": "[MOCK] Generated without a model.",
			"allergen_risk":        "No common allergens detected in data.",
			"sustainability_score": 55,
			"sustainability_flag":  "Medium",
			"alternatives":         []interface{}{},
			"next_steps":           []string{"Keep refrigerated if perishable."},
			"sources":              []interface{}{},
		}
		data, _ := json.Marshal(report)
		return string(data)
	}

	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}
	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}
	return fmt.Sprintf("[MOCK] Received your message: %q.", truncate(lastUserMessage, 100))
}

func cloneRequest(req *ChatCompletionRequest) ChatCompletionRequest {
	c := *req
	c.Messages = append([]ChatMessage(nil), req.Messages...)
	return c
}

func estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
