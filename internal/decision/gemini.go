package decision

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"autocraft/internal/action"
	"autocraft/internal/config"
	"autocraft/internal/logging"
	"autocraft/internal/world"
)

// =============================================================================
// GEMINI DECISION ENGINE
// =============================================================================

// NotConfiguredMessage is chatted for every command when no usable API key
// was provided.
const NotConfiguredMessage = "I can't think right now. My connection to the Gemini API is not configured. Please check the GEMINI_API_KEY environment variable."

// chatSession is the part of *genai.Chat the engine uses.
type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiEngine decides through one long-lived Gemini chat session, so the
// model sees the conversation so far. The session is replaced on Reset.
type GeminiEngine struct {
	model   string
	newChat func(ctx context.Context) (chatSession, error)

	mu   sync.Mutex
	chat chatSession
}

// NewGeminiEngine creates an engine from the llm config section. Without a
// usable API key it still returns an engine; every decision then reports
// that the connection is not configured.
func NewGeminiEngine(ctx context.Context, cfg config.LLMConfig) (*GeminiEngine, error) {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	e := &GeminiEngine{model: model}

	switch {
	case cfg.APIKey == "":
		logging.Get(logging.CategoryDecision).Error("Gemini API key not found. The bot will not have AI capabilities.")
		return e, nil
	case !cfg.HasUsableAPIKey():
		logging.Get(logging.CategoryDecision).Error("Invalid Gemini API key format. The bot will not have AI capabilities.")
		return e, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
	}
	if cfg.GoogleSearch {
		genCfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	e.newChat = func(ctx context.Context) (chatSession, error) {
		return client.Chats.Create(ctx, model, genCfg, nil)
	}
	return e, nil
}

// Configured reports whether the engine can reach the model.
func (e *GeminiEngine) Configured() bool {
	return e.newChat != nil
}

// Name returns the engine name.
func (e *GeminiEngine) Name() string {
	return fmt.Sprintf("gemini:%s", e.model)
}

// Reset starts a fresh chat session.
func (e *GeminiEngine) Reset(ctx context.Context) error {
	if e.newChat == nil {
		return nil
	}
	chat, err := e.newChat(ctx)
	if err != nil {
		return fmt.Errorf("%w: start chat: %w", ErrDecision, err)
	}
	e.mu.Lock()
	e.chat = chat
	e.mu.Unlock()
	logging.Decision("started new %s chat session", e.model)
	return nil
}

func (e *GeminiEngine) session(ctx context.Context) (chatSession, error) {
	e.mu.Lock()
	chat := e.chat
	e.mu.Unlock()
	if chat != nil {
		return chat, nil
	}
	if err := e.Reset(ctx); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chat, nil
}

// Decide sends the rendered prompt and parses the reply.
func (e *GeminiEngine) Decide(ctx context.Context, command, requester string, snap *world.Snapshot) (action.Action, error) {
	if e.newChat == nil {
		return action.Error("The API key is missing or invalid, so I cannot process any commands.", NotConfiguredMessage), nil
	}
	chat, err := e.session(ctx)
	if err != nil {
		return action.Action{}, err
	}

	prompt := RenderPrompt(command, requester, snap)
	logging.DecisionDebug("prompt:\n%s", prompt)

	resp, err := chat.SendMessage(ctx, genai.Part{Text: prompt})
	if err != nil {
		return action.Action{}, fmt.Errorf("%w: send message: %w", ErrDecision, err)
	}
	logSources(resp)

	text := resp.Text()
	logging.DecisionDebug("response:\n%s", text)
	return ParseResponse(text), nil
}

// logSources reports any web pages the answer was grounded on.
func logSources(resp *genai.GenerateContentResponse) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return
	}
	chunks := resp.Candidates[0].GroundingMetadata.GroundingChunks
	if len(chunks) == 0 {
		return
	}
	log := logging.Get(logging.CategoryDecision)
	log.Info("information sourced from the web:")
	for _, chunk := range chunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		title := chunk.Web.Title
		if title == "" {
			title = "Source"
		}
		log.Info("  - %s: %s", title, chunk.Web.URI)
	}
}
