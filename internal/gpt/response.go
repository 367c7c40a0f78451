package gpt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// enrichResponse is the JSON the model returns for an enrichment
// request.
type enrichResponse struct {
	// NutritionalInfo maps an ingredient name to its nutrition fields.
	NutritionalInfo map[string]map[string]flexText `json:"nutritional_info"`
	Recipes         []recipeResponse               `json:"recipes"`
}

type recipeResponse struct {
	Title       flexText `json:"title"`
	Ingredients flexText `json:"ingredients"`
	Preparation flexText `json:"preparation"`
}

// flexText accepts a JSON string, number, bool or an array of those and
// flattens it to a single string. Models are inconsistent about
// "52 kcal" vs 52 and about ingredient lists vs comma strings.
type flexText string

func (f *flexText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexText(strings.TrimSpace(s))
		return nil
	case '[':
		var items []flexText
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, it := range items {
			if it != "" {
				parts = append(parts, string(it))
			}
		}
		*f = flexText(strings.Join(parts, ", "))
		return nil
	case '{':
		return fmt.Errorf("gpt: expected text, got object")
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexText(n.String())
		return nil
	}
	if b, err := strconv.ParseBool(string(data)); err == nil {
		*f = flexText(strconv.FormatBool(b))
		return nil
	}
	return fmt.Errorf("gpt: unsupported text value %s", truncate(string(data), 40))
}
