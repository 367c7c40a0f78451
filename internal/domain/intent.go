package domain

// IntentType classifies what a matched command asks for.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentStartDetection
	IntentStopDetection
	IntentOpenMenu
	IntentCloseMenu
	IntentEnrich // fetch nutrition and recipes for the current detections
	IntentShowRecipes
	IntentNextRecipe
	IntentPreviousRecipe
	IntentTogglePreparation
	IntentSaveFavorite
	IntentSetName      // payload: the spoken name
	IntentSetBirthDate // payload: the spoken date
	IntentSetCuisines  // payload: comma separated cuisines
	IntentSubmitRegistration
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	switch i {
	case IntentStartDetection:
		return "start_detection"
	case IntentStopDetection:
		return "stop_detection"
	case IntentOpenMenu:
		return "open_menu"
	case IntentCloseMenu:
		return "close_menu"
	case IntentEnrich:
		return "enrich"
	case IntentShowRecipes:
		return "show_recipes"
	case IntentNextRecipe:
		return "next_recipe"
	case IntentPreviousRecipe:
		return "previous_recipe"
	case IntentTogglePreparation:
		return "toggle_preparation"
	case IntentSaveFavorite:
		return "save_favorite"
	case IntentSetName:
		return "set_name"
	case IntentSetBirthDate:
		return "set_birth_date"
	case IntentSetCuisines:
		return "set_cuisines"
	case IntentSubmitRegistration:
		return "submit_registration"
	default:
		return "unknown"
	}
}

// Intent represents a matched command.
type Intent struct {
	Type    IntentType
	Payload string // wildcard capture for parameterized commands
}

// intentNames maps snake_case names to IntentType values.
var intentNames = map[string]IntentType{
	"start_detection":     IntentStartDetection,
	"stop_detection":      IntentStopDetection,
	"open_menu":           IntentOpenMenu,
	"close_menu":          IntentCloseMenu,
	"enrich":              IntentEnrich,
	"show_recipes":        IntentShowRecipes,
	"next_recipe":         IntentNextRecipe,
	"previous_recipe":     IntentPreviousRecipe,
	"toggle_preparation":  IntentTogglePreparation,
	"save_favorite":       IntentSaveFavorite,
	"set_name":            IntentSetName,
	"set_birth_date":      IntentSetBirthDate,
	"set_cuisines":        IntentSetCuisines,
	"submit_registration": IntentSubmitRegistration,
	"unknown":             IntentUnknown,
}

// IntentFromString converts a snake_case intent name to an IntentType.
// Returns IntentUnknown for unrecognized names. Used by the HTTP action
// endpoint and the YAML command table.
func IntentFromString(name string) IntentType {
	if t, ok := intentNames[name]; ok {
		return t
	}
	return IntentUnknown
}
