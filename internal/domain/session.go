package domain

// Flags are the boolean session flags. They only change through named
// transitions on the session container.
type Flags struct {
	DetectionActive  bool `json:"detectionActive"`
	MenuOpen         bool `json:"menuOpen"`
	Loading          bool `json:"loading"`
	Loaded           bool `json:"loaded"`
	ShowPreparation  bool `json:"showPreparation"`
	RequestPending   bool `json:"requestPending"`
	NewInfoAvailable bool `json:"newInfoAvailable"`
	ShowNutrition    bool `json:"showNutrition"`
}

// UserProfile is the user the session is running for. Immutable once
// loaded.
type UserProfile struct {
	ID                string   `json:"id,omitempty"`
	Name              string   `json:"first_name"`
	BirthDate         string   `json:"birth_date"`
	PreferredCuisines []string `json:"preferred_cuisines"`
}

// RegistrationField identifies one input of the registration form.
type RegistrationField int

const (
	FieldName RegistrationField = iota
	FieldBirthDate
	FieldCuisines
	FieldSubmit
)

// String returns a human-readable field name.
func (f RegistrationField) String() string {
	switch f {
	case FieldName:
		return "name"
	case FieldBirthDate:
		return "birth_date"
	case FieldCuisines:
		return "cuisines"
	case FieldSubmit:
		return "submit"
	default:
		return "unknown"
	}
}

// Next returns the field focus moves to after this one is written.
func (f RegistrationField) Next() RegistrationField {
	if f >= FieldSubmit {
		return FieldSubmit
	}
	return f + 1
}

// Registration holds the in-progress registration form.
type Registration struct {
	Name      string            `json:"name"`
	BirthDate string            `json:"birthDate"`
	Cuisines  []string          `json:"cuisines"`
	Focus     RegistrationField `json:"focus"`
}

// Complete reports whether every field required to submit is filled.
func (r Registration) Complete() bool {
	return r.Name != "" && r.BirthDate != ""
}

// Profile converts the form into a profile ready to be created.
func (r Registration) Profile() UserProfile {
	cuisines := make([]string, len(r.Cuisines))
	copy(cuisines, r.Cuisines)
	return UserProfile{
		Name:              r.Name,
		BirthDate:         r.BirthDate,
		PreferredCuisines: cuisines,
	}
}
