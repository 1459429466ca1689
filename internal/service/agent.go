package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"
	"golang.org/x/sync/errgroup"

	"github.com/roshaninfordham/safebiteai/internal/adapter/llm"
	"github.com/roshaninfordham/safebiteai/internal/adapter/news"
	"github.com/roshaninfordham/safebiteai/internal/domain"
	"github.com/roshaninfordham/safebiteai/internal/logging"
	"github.com/roshaninfordham/safebiteai/internal/tools"
)

const (
	maxParallelTools  = 4
	finalReportPrompt = "Based on all the information gathered (including news sources), generate the final SafeBite JSON report now."
)

// toolTrace records one tool call for the report trace.
type toolTrace struct {
	Turn      int    `json:"turn"`
	CallID    string `json:"call_id"`
	Tool      string `json:"tool"`
	Arguments string `json:"arguments,omitempty"`
	Error     string `json:"error,omitempty"`
}

// toolOutcome is the result of one turn of tool calls.
type toolOutcome struct {
	messages []llm.ChatMessage
	trace    []toolTrace
	sources  []domain.Source
}

// runAgent lets the model gather facts through tools for a bounded number of
// turns, then asks for the structured report.
func (s *Service) runAgent(ctx context.Context, sessionID string, req *domain.RunRequest) (*domain.SafetyReport, error) {
	defs := s.router.Definitions()
	messages := []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: systemInstruction(req.EffectivePrefs())},
		userMessage(req),
	}

	s.running(sessionID, domain.StepReasoning, "Agent is thinking...")
	msg, err := s.chat(ctx, messages, defs, nil)
	if err != nil {
		return nil, err
	}

	var trace []toolTrace
	var cited []domain.Source
	turns := 0
	for ; len(msg.ToolCalls) > 0 && turns < s.opts.MaxToolTurns; turns++ {
		ensureCallIDs(msg.ToolCalls)
		messages = append(messages, msg)

		out := s.executeToolCalls(ctx, sessionID, turns+1, msg.ToolCalls)
		messages = append(messages, out.messages...)
		trace = append(trace, out.trace...)
		cited = append(cited, out.sources...)

		s.running(sessionID, domain.StepReasoning, "Processing gathered info...")
		if msg, err = s.chat(ctx, messages, defs, nil); err != nil {
			return nil, err
		}
	}

	// Unanswered tool calls cannot stay in the transcript.
	if len(msg.ToolCalls) > 0 {
		s.logger.WithFields(logging.Fields{
			"session_id": sessionID,
			"turns":      turns,
		}).Info("tool turn budget exhausted")
	} else if strings.TrimSpace(msg.Content) != "" {
		messages = append(messages, msg)
	}
	s.completed(sessionID, domain.StepReasoning, "Information gathering complete")

	s.running(sessionID, domain.StepFinalizing, "Generating safety report")
	messages = append(messages, llm.ChatMessage{Role: llm.RoleUser, Content: finalReportPrompt})
	final, err := s.chat(ctx, messages, defs, reportFormat())
	if err != nil {
		return nil, err
	}

	report, err := parseReport(final.Content)
	if err != nil {
		return nil, err
	}
	report.SessionID = sessionID
	report.Sources = mergeSources(report.Sources, cited...)
	report.Normalize()
	if len(trace) > 0 {
		if data, err := json.Marshal(trace); err == nil {
			report.Trace = data
		}
	}

	s.completed(sessionID, domain.StepFinalizing, "Report ready")
	return report, nil
}

// chat sends one completion request. A response without choices yields an
// empty assistant message.
func (s *Service) chat(ctx context.Context, messages []llm.ChatMessage, defs []llm.Tool, format *llm.ResponseFormat) (llm.ChatMessage, error) {
	req := &llm.ChatCompletionRequest{
		Model:    s.opts.Model,
		Messages: messages,
		Tools:    defs,
	}
	if format != nil {
		req.ResponseFormat = format
		if len(defs) > 0 {
			req.ToolChoice = "none"
		}
	}

	resp, err := s.llmClient.CreateChatCompletion(ctx, req)
	if err != nil {
		return llm.ChatMessage{}, fmt.Errorf("agent chat failed: %w", err)
	}
	if msg := resp.FirstMessage(); msg != nil {
		return *msg, nil
	}
	return llm.ChatMessage{Role: llm.RoleAssistant}, nil
}

// executeToolCalls runs one turn of tool calls concurrently. Results keep the
// order of calls.
func (s *Service) executeToolCalls(ctx context.Context, sessionID string, turn int, calls []llm.ToolCall) toolOutcome {
	results := make([]json.RawMessage, len(calls))

	var g errgroup.Group
	g.SetLimit(maxParallelTools)
	for i, call := range calls {
		g.Go(func() error {
			stepID := "tool_" + call.ID
			name := call.Function.Name
			s.running(sessionID, stepID, toolLabel(call))
			results[i] = s.router.Execute(ctx, name, json.RawMessage(call.Function.Arguments))
			s.emit(sessionID, stepID, "Tool finished: "+name, domain.StepStatusCompleted, tools.ErrorOf(results[i]))
			return nil
		})
	}
	_ = g.Wait()

	out := toolOutcome{
		messages: make([]llm.ChatMessage, 0, len(calls)),
		trace:    make([]toolTrace, 0, len(calls)),
	}
	for i, call := range calls {
		out.messages = append(out.messages, llm.ChatMessage{
			Role:       llm.RoleTool,
			ToolCallID: call.ID,
			Name:       call.Function.Name,
			Content:    string(results[i]),
		})
		out.trace = append(out.trace, toolTrace{
			Turn:      turn,
			CallID:    call.ID,
			Tool:      call.Function.Name,
			Arguments: call.Function.Arguments,
			Error:     tools.ErrorOf(results[i]),
		})
		if call.Function.Name == tools.CheckFoodSafetyNews {
			out.sources = append(out.sources, newsSources(results[i])...)
		}
	}
	return out
}

func ensureCallIDs(calls []llm.ToolCall) {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = "call_" + uuid.New().String()[:8]
		}
		if calls[i].Type == "" {
			calls[i].Type = "function"
		}
	}
}

func toolLabel(call llm.ToolCall) string {
	if call.Function.Name == tools.CheckFoodSafetyNews {
		var args struct {
			Query string `json:"query"`
		}
		_ = json.Unmarshal([]byte(call.Function.Arguments), &args)
		return fmt.Sprintf("Scanning News & Social Media for %s...", args.Query)
	}
	return "Executing tool: " + call.Function.Name
}

func newsSources(result json.RawMessage) []domain.Source {
	var res news.Result
	if err := json.Unmarshal(result, &res); err != nil {
		return nil
	}
	out := make([]domain.Source, 0, len(res.Sources))
	for _, src := range res.Sources {
		out = append(out, domain.Source{Title: src.Title, URI: src.URI})
	}
	return out
}

func systemInstruction(prefs domain.UserPrefs) string {
	location := prefs.Location
	if location == "" {
		location = "unspecified"
	}
	return fmt.Sprintf(`You are SafeBite, a food risk intelligence agent.
Assess food safety and sustainability using official databases and real-time news.

User preferences:
- Diet: %s
- Location: %s
- Language: %s

Workflow:
1. Analyze the input.
2. Use tools to gather facts.
   - Always call check_food_safety_news to look for recent outbreaks (E. coli, Salmonella, Listeria).
   - If a barcode is given, call lookup_product_by_barcode.
   - Once the product is identified, call check_food_recalls, check_sustainability_impact and lookup_storage_guidance.
3. When writing the final report:
   - Start the safety score at 100. Subtract 40 for an active recall or a reported outbreak, 20 if any allergen is present and 10 if storage guidance mentions a risk.
   - A score below 40 is Unsafe, below 70 is Caution, otherwise Low risk.
   - Include the URLs returned by check_food_safety_news in sources.
   - Write all text in %s.

Do not generate the report yet. Gather facts using the tools.`,
		prefs.DietRestriction, location, prefs.UserLanguage, prefs.UserLanguage)
}

func userMessage(req *domain.RunRequest) llm.ChatMessage {
	switch req.InputType {
	case domain.InputTypeImage:
		prompt := "Analyze this image. Identify the food/product and check its safety."
		if p := strings.TrimSpace(req.UserPrompt); p != "" {
			prompt += " " + p
		}
		return llm.ChatMessage{
			Role:  llm.RoleUser,
			Parts: []llm.ContentPart{llm.ImagePart(req.MimeType, req.ImageBase64), llm.TextPart(prompt)},
		}
	case domain.InputTypeBarcode:
		return llm.ChatMessage{Role: llm.RoleUser, Content: fmt.Sprintf("Analyze this barcode: %s. Check safety.", req.Barcode)}
	default:
		return llm.ChatMessage{Role: llm.RoleUser, Content: req.ActiveText()}
	}
}

// parseReport decodes the model's final report, repairing malformed JSON.
func parseReport(content string) (*domain.SafetyReport, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty response", ErrReportGeneration)
	}

	var report domain.SafetyReport
	if err := json.Unmarshal([]byte(content), &report); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(content)
		if repairErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrReportGeneration, repairErr)
		}
		report = domain.SafetyReport{}
		if err := json.Unmarshal([]byte(repaired), &report); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReportGeneration, err)
		}
	}
	if strings.TrimSpace(report.ProductName) == "" {
		return nil, fmt.Errorf("%w: report has no product_name", ErrReportGeneration)
	}
	return &report, nil
}

func reportFormat() *llm.ResponseFormat {
	return &llm.ResponseFormat{
		Type: "json_schema",
		JSONSchema: &llm.JSONSchema{
			Name:   "safebite_report",
			Schema: json.RawMessage(reportSchema),
		},
	}
}

const reportSchema = `{
  "type": "object",
  "properties": {
    "product_name": {"type": "string"},
    "ingredient_list": {"type": "array", "items": {"type": "string"}},
    "allergen_risk": {"type": "string"},
    "safety_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "safety_flag": {"type": "string", "enum": ["Unsafe", "Caution", "Low risk"]},
    "sustainability_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "sustainability_flag": {"type": "string"},
    "explanation_short": {"type": "string"},
    "explanation_detailed": {"type": "string"},
    "alternatives": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "why": {"type": "string"},
          "taste_similarity": {"type": "string"}
        },
        "required": ["name", "why", "taste_similarity"]
      }
    },
    "next_steps": {"type": "array", "items": {"type": "string"}},
    "sources": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "title": {"type": "string"},
          "uri": {"type": "string"}
        },
        "required": ["title", "uri"]
      }
    }
  },
  "required": ["product_name", "ingredient_list", "allergen_risk", "safety_score", "safety_flag",
    "sustainability_score", "sustainability_flag", "explanation_short", "explanation_detailed",
    "alternatives", "next_steps", "sources"]
}`
