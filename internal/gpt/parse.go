package gpt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hammamikhairi/foodlens/internal/domain"
)

// parseEnrichment decodes and validates a model reply. Every failure
// unwraps to domain.ErrMalformedResponse. At most maxRecipes recipes are
// kept.
func parseEnrichment(raw string, maxRecipes int) (*domain.Enrichment, error) {
	body := extractObject(stripCodeFence(raw))
	if body == "" {
		return nil, domain.Malformed(errors.New("reply contains no JSON object"))
	}

	var resp enrichResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, domain.Malformed(fmt.Errorf("decode reply: %w", err))
	}

	if len(resp.Recipes) == 0 {
		return nil, domain.Malformed(errors.New("reply has no recipes"))
	}
	if maxRecipes > 0 && len(resp.Recipes) > maxRecipes {
		resp.Recipes = resp.Recipes[:maxRecipes]
	}

	out := &domain.Enrichment{
		Nutrition: make(map[string]map[string]string, len(resp.NutritionalInfo)),
		Recipes:   make([]domain.Recipe, 0, len(resp.Recipes)),
	}

	for i, r := range resp.Recipes {
		rec := domain.Recipe{
			Title:       string(r.Title),
			Ingredients: string(r.Ingredients),
			Preparation: string(r.Preparation),
		}
		if missing := missingFields(rec); len(missing) > 0 {
			return nil, domain.Malformed(fmt.Errorf("recipe %d missing %s", i+1, strings.Join(missing, ", ")))
		}
		out.Recipes = append(out.Recipes, rec)
	}

	for name, fields := range resp.NutritionalInfo {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		n := make(map[string]string, len(fields))
		for k, v := range fields {
			n[normalizeField(k)] = string(v)
		}
		out.Nutrition[name] = n
	}

	return out, nil
}

func missingFields(r domain.Recipe) []string {
	var missing []string
	if r.Title == "" {
		missing = append(missing, "title")
	}
	if r.Ingredients == "" {
		missing = append(missing, "ingredients")
	}
	if r.Preparation == "" {
		missing = append(missing, "preparation")
	}
	return missing
}

// normalizeField maps "Calorías" and "calorias" to the same key.
func normalizeField(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u").Replace(k)
}

// extractObject returns the outermost {...} span, tolerating prose the
// model sometimes puts around the JSON.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
