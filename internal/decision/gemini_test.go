package decision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"autocraft/internal/action"
	"autocraft/internal/config"
	"autocraft/internal/world"
)

type fakeChat struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeChat) SendMessage(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	for _, p := range parts {
		f.prompts = append(f.prompts, p.Text)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.reply}}},
			GroundingMetadata: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{{Web: &genai.GroundingChunkWeb{URI: "https://minecraft.wiki/w/Crafting_Table"}}},
			},
		}},
	}, nil
}

func fakeEngine(chats ...*fakeChat) (*GeminiEngine, *int) {
	created := 0
	e := &GeminiEngine{model: "test-model"}
	e.newChat = func(context.Context) (chatSession, error) {
		c := chats[created%len(chats)]
		created++
		return c, nil
	}
	return e, &created
}

var testSnap = &world.Snapshot{Username: "Bot", Health: 20, Food: 20, HeldItem: "empty hand", Biome: "plains"}

func TestGeminiEngineWithoutKey(t *testing.T) {
	for _, key := range []string{"", "sk-not-google"} {
		e, err := NewGeminiEngine(context.Background(), config.LLMConfig{APIKey: key})
		require.NoError(t, err)
		assert.False(t, e.Configured())
		require.NoError(t, e.Reset(context.Background()))

		a, err := e.Decide(context.Background(), "hi", "Steve", testSnap)
		require.NoError(t, err)
		assert.Equal(t, action.KindError, a.Kind)
		assert.Equal(t, NotConfiguredMessage, a.Message)
	}
}

func TestGeminiEngineDecide(t *testing.T) {
	chat := &fakeChat{reply: "Sure.\n```json\n{\"thought\": \"t\", \"action\": \"craft\", \"item\": \"crafting_table\"}\n```"}
	e, created := fakeEngine(chat)

	a, err := e.Decide(context.Background(), "make a table", "Steve", testSnap)
	require.NoError(t, err)
	assert.Equal(t, action.KindCraft, a.Kind)
	assert.Equal(t, "crafting_table", a.Item)
	assert.Equal(t, 1, *created, "session created lazily")
	require.Len(t, chat.prompts, 1)
	assert.Contains(t, chat.prompts[0], `User Command: "make a table"`)

	_, err = e.Decide(context.Background(), "again", "Steve", testSnap)
	require.NoError(t, err)
	assert.Equal(t, 1, *created, "session reused")
}

func TestGeminiEngineResetStartsNewSession(t *testing.T) {
	first := &fakeChat{reply: "hello"}
	second := &fakeChat{reply: "hi again"}
	e, created := fakeEngine(first, second)

	require.NoError(t, e.Reset(context.Background()))
	_, err := e.Decide(context.Background(), "one", "Steve", testSnap)
	require.NoError(t, err)
	require.NoError(t, e.Reset(context.Background()))
	a, err := e.Decide(context.Background(), "two", "Steve", testSnap)
	require.NoError(t, err)

	assert.Equal(t, 2, *created)
	assert.Len(t, first.prompts, 1)
	assert.Len(t, second.prompts, 1)
	assert.Equal(t, action.Chat("No structured action, just a chat reply.", "hi again"), a)
}

func TestGeminiEngineTransportError(t *testing.T) {
	e, _ := fakeEngine(&fakeChat{err: errors.New("503 unavailable")})
	_, err := e.Decide(context.Background(), "hi", "Steve", testSnap)
	assert.ErrorIs(t, err, ErrDecision)
	assert.Contains(t, err.Error(), "503 unavailable")
}
