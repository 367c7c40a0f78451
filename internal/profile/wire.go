// Package profile implements the user-profile stores backed by remote
// services: a plain REST API and Supabase.
package profile

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/hammamikhairi/foodlens/internal/domain"
)

// userRow is the wire shape of a user in both backends.
type userRow struct {
	ID                flexID   `json:"id,omitempty"`
	FirstName         string   `json:"first_name"`
	BirthDate         string   `json:"birth_date"`
	PreferredCuisines flexList `json:"preferred_cuisines"`
}

func rowFromProfile(p domain.UserProfile) userRow {
	return userRow{
		FirstName:         p.Name,
		BirthDate:         p.BirthDate,
		PreferredCuisines: flexList(append([]string(nil), p.PreferredCuisines...)),
	}
}

func (r userRow) profile() domain.UserProfile {
	return domain.UserProfile{
		ID:                string(r.ID),
		Name:              r.FirstName,
		BirthDate:         r.BirthDate,
		PreferredCuisines: append([]string(nil), r.PreferredCuisines...),
	}
}

// favoriteRow is the wire shape of a saved recipe.
type favoriteRow struct {
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Ingredients string `json:"ingredients"`
	Preparation string `json:"preparation"`
}

func rowFromFavorite(f domain.Favorite) favoriteRow {
	return favoriteRow{
		UserID:      f.UserID,
		Title:       f.Recipe.Title,
		Ingredients: f.Recipe.Ingredients,
		Preparation: f.Recipe.Preparation,
	}
}

// flexID accepts numeric and string ids.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = flexID(n.String())
	return nil
}

// flexList accepts a JSON array of strings or a single comma separated
// string.
type flexList []string

func (l *flexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	var items []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	*l = items
	return nil
}
