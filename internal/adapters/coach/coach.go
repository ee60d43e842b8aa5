// Package coach is the chatbot that answers questions about a user's
// communication-skill scores.
package coach

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/okian/commskill/internal/domain/model"
	"github.com/okian/commskill/internal/domain/scoring"
	"github.com/okian/commskill/pkg/logger"
	"github.com/okian/commskill/pkg/metrics"
)

// Conversation identifies a chat session.
type Conversation struct {
	ID        string    `json:"conversationId"`
	OwnerID   string    `json:"-"`
	Greeting  string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Reply is the coach's answer to one message.
type Reply struct {
	ConversationID string            `json:"conversationId"`
	Message        string            `json:"message"`
	Skill          scoring.Dimension `json:"skill,omitempty"`
	Metrics        scoring.Scores    `json:"metrics,omitempty"`
}

type conversation struct {
	id       string
	owner    string
	lastUsed time.Time

	mu      sync.Mutex
	skill   scoring.Dimension
	history []openai.ChatCompletionMessage
}

// Coach keeps conversations in memory and asks an LLM for replies.
// Conversations idle for longer than the TTL are forgotten, and the least
// recently used one is dropped when the limit is reached.
type Coach struct {
	client           *openai.Client
	model            string
	maxHistory       int
	maxConversations int
	ttl              time.Duration
	scores           ScoreSource
	now              func() time.Time
	log              logger.Logger

	mu            sync.Mutex
	conversations map[string]*list.Element
	order         *list.List // front is most recently used
}

// NewClient builds an OpenAI-compatible client. An empty baseURL uses the
// OpenAI API.
func NewClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// New creates a coach.
func New(client *openai.Client, opts ...Option) *Coach {
	c := &Coach{
		client:           client,
		model:            defaultModel,
		maxHistory:       defaultMaxHistory,
		maxConversations: defaultMaxConversations,
		ttl:              defaultConversationTTL,
		now:              time.Now,
		log:              logger.Nop(),
		conversations:    make(map[string]*list.Element),
		order:            list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coach) latest(ctx context.Context, owner string) scoring.Scores {
	if c.scores == nil {
		return nil
	}
	s, ok := c.scores.LatestScores(ctx, owner)
	if !ok {
		return nil
	}
	return s
}

// Start opens a conversation for owner. No model call is made.
func (c *Coach) Start(ctx context.Context, owner string) Conversation {
	now := c.now()
	conv := &conversation{id: uuid.NewString(), owner: owner, lastUsed: now}

	c.mu.Lock()
	c.expire(now)
	for c.maxConversations > 0 && c.order.Len() >= c.maxConversations {
		c.remove(c.order.Back())
	}
	c.conversations[conv.id] = c.order.PushFront(conv)
	c.mu.Unlock()

	c.log.Debug(ctx, "conversation started", logger.String("conversation", conv.id), logger.String("owner", owner))
	return Conversation{ID: conv.id, OwnerID: owner, Greeting: greeting, CreatedAt: now.UTC()}
}

// Send adds message to the conversation and returns the model's reply. The
// system prompt is rebuilt from the owner's latest scores on every call.
func (c *Coach) Send(ctx context.Context, owner, conversationID, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}

	conv, ok := c.touch(owner, conversationID)
	if !ok {
		return Reply{}, ErrConversationNotFound
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	if skill := detectSkill(message); skill != "" {
		conv.skill = skill
	}
	scores := c.latest(ctx, owner)
	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message}

	msgs := make([]openai.ChatCompletionMessage, 0, len(conv.history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(scores)})
	msgs = append(msgs, conv.history...)
	msgs = append(msgs, user)

	answer, err := c.complete(ctx, "chat", openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  msgs,
		MaxTokens: defaultMaxTokens,
	})
	if err != nil {
		return Reply{}, err
	}

	conv.history = append(conv.history, user,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: answer})
	if extra := len(conv.history) - c.maxHistory; extra > 0 {
		conv.history = append([]openai.ChatCompletionMessage(nil), conv.history[extra:]...)
	}

	return Reply{ConversationID: conversationID, Message: answer, Skill: conv.skill, Metrics: scores}, nil
}

// End forgets one of the owner's conversations.
func (c *Coach) End(ctx context.Context, owner, conversationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.conversations[conversationID]
	if !ok || el.Value.(*conversation).owner != owner {
		return ErrConversationNotFound
	}
	c.remove(el)
	c.log.Debug(ctx, "conversation ended", logger.String("conversation", conversationID))
	return nil
}

// Len returns the number of live conversations.
func (c *Coach) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expire(c.now())
	return c.order.Len()
}

// touch returns the owner's conversation and marks it used. Expired
// conversations are dropped on the way.
func (c *Coach) touch(owner, id string) (*conversation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.expire(now)
	el, ok := c.conversations[id]
	if !ok {
		return nil, false
	}
	conv := el.Value.(*conversation)
	if conv.owner != owner {
		return nil, false
	}
	conv.lastUsed = now
	c.order.MoveToFront(el)
	return conv, true
}

// expire must be called with c.mu held.
func (c *Coach) expire(now time.Time) {
	if c.ttl <= 0 {
		return
	}
	for el := c.order.Back(); el != nil; el = c.order.Back() {
		if now.Sub(el.Value.(*conversation).lastUsed) < c.ttl {
			return
		}
		c.remove(el)
	}
}

// remove must be called with c.mu held.
func (c *Coach) remove(el *list.Element) {
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.conversations, el.Value.(*conversation).id)
}

// Insights asks the model for strengths, improvements and recommendations
// for scores.
func (c *Coach) Insights(ctx context.Context, scores scoring.Scores) (*model.Insights, error) {
	content, err := c.complete(ctx, "insights", openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: insightsPrompt},
			{Role: openai.ChatMessageRoleUser, Content: formatScores(scores)},
		},
		MaxTokens: defaultMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	var out model.Insights
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadInsights, err)
	}
	return &out, nil
}

func (c *Coach) complete(ctx context.Context, kind string, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		metrics.RecordCoachRequest(kind, "error")
		if ctx.Err() != nil {
			return "", fmt.Errorf("failed to create chat completion: %w", err)
		}
		return "", fmt.Errorf("%w: failed to create chat completion: %w", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		metrics.RecordCoachRequest(kind, "empty")
		return "", fmt.Errorf("%w: %w", ErrUpstream, ErrNoCompletion)
	}
	metrics.RecordCoachRequest(kind, "ok")
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
