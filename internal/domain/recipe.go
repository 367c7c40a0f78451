package domain

// Recipe is one suggestion returned by the enrichment service.
type Recipe struct {
	Title       string `json:"title"`
	Ingredients string `json:"ingredients"`
	Preparation string `json:"preparation"`
}

// Enrichment is a parsed, validated enrichment response.
type Enrichment struct {
	// Nutrition maps detection name to field to value.
	Nutrition map[string]map[string]string
	Recipes   []Recipe
}

// Favorite is a recipe saved against a user.
type Favorite struct {
	UserID string
	Recipe Recipe
}
