package gpt

import (
	"context"
	"fmt"
	"strings"

	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/logger"
)

// AgentOption configures the Agent.
type AgentOption func(*Agent)

// WithRecipeCount sets how many recipes are requested and kept.
func WithRecipeCount(n int) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.recipeCount = n
		}
	}
}

// Agent wraps the chat Client with food-domain prompt building. It is the
// single entry-point the enrichment pipeline calls.
type Agent struct {
	client      *Client
	log         *logger.Logger
	recipeCount int
}

var _ domain.Enricher = (*Agent)(nil)

// NewAgent creates an enrichment agent backed by the given Client.
func NewAgent(client *Client, log *logger.Logger, opts ...AgentOption) *Agent {
	a := &Agent{client: client, log: log, recipeCount: 3}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ── Public API ───────────────────────────────────────────────────

// Enrich asks the model for nutrition facts for every name and for a set
// of recipes using them. The profile, when present, steers the recipes
// toward the user's preferred cuisines.
func (a *Agent) Enrich(ctx context.Context, names []string, profile *domain.UserProfile) (*domain.Enrichment, error) {
	if len(names) == 0 {
		return nil, domain.ErrNothingToEnrich
	}

	query := fmt.Sprintf(enrichRequestTemplate, a.recipeCount, strings.Join(names, ", "))
	messages := a.buildMessages(PromptEnrich, query, profile)

	raw, err := a.client.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}

	result, err := parseEnrichment(raw, a.recipeCount)
	if err != nil {
		a.log.Error("gpt: failed to parse enrichment JSON: %v\nraw: %s", err, truncate(raw, 400))
		return nil, fmt.Errorf("gpt: %w", err)
	}

	a.log.Debug("gpt: enrichment for %v: %d nutrition entries, %d recipes", names, len(result.Nutrition), len(result.Recipes))
	return result, nil
}

// stripCodeFence removes ```json ... ``` wrappers that LLMs love to add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		// Remove opening fence line.
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		// Remove closing fence.
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// ── Context building ─────────────────────────────────────────────

// buildMessages assembles the system prompt, an optional profile context
// message, and the actual request.
func (a *Agent) buildMessages(systemPrompt, userQuery string, profile *domain.UserProfile) []Message {
	msgs := []Message{
		TextMessage(RoleSystem, systemPrompt),
	}

	if ctxBlock := buildContext(profile); ctxBlock != "" {
		msgs = append(msgs, TextMessage(RoleUser, ctxBlock))
		// Fake an ack so the model treats context as established.
		msgs = append(msgs, TextMessage(RoleAssistant, "Entendido, tengo en cuenta tu perfil."))
	}

	msgs = append(msgs, TextMessage(RoleUser, userQuery))
	return msgs
}

// buildContext describes the user so recipes can match their taste.
func buildContext(profile *domain.UserProfile) string {
	if profile == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("[Perfil del usuario]\n")
	if profile.Name != "" {
		fmt.Fprintf(&b, "Nombre: %s\n", profile.Name)
	}
	if len(profile.PreferredCuisines) > 0 {
		fmt.Fprintf(&b, "Cocinas favoritas: %s\n", strings.Join(profile.PreferredCuisines, ", "))
		b.WriteString("Sugiere recetas de estas cocinas cuando sea posible.\n")
	}
	return b.String()
}
