package session

import (
	"regexp"
	"strings"

	"github.com/hammamikhairi/foodlens/internal/domain"
)

// cuisineSep splits "italiana, mexicana y japonesa".
var cuisineSep = regexp.MustCompile(`\s*,\s*|\s+y\s+|\s+e\s+`)

// SplitCuisines turns a spoken list into separate cuisines.
func SplitCuisines(raw string) []string {
	var out []string
	for _, part := range cuisineSep.Split(strings.TrimSpace(raw), -1) {
		part = strings.Trim(part, " .")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SetRegistrationField writes one registration field and moves focus to
// the field after it. It returns the new focus.
func (s *Session) SetRegistrationField(field domain.RegistrationField, value string) domain.RegistrationField {
	value = strings.Trim(strings.TrimSpace(value), ".")
	var focus domain.RegistrationField
	s.update("registration "+field.String(), func() bool {
		switch field {
		case domain.FieldName:
			s.reg.Name = value
		case domain.FieldBirthDate:
			s.reg.BirthDate = value
		case domain.FieldCuisines:
			s.reg.Cuisines = SplitCuisines(value)
		default:
			focus = s.reg.Focus
			return false
		}
		s.reg.Focus = field.Next()
		focus = s.reg.Focus
		return true
	})
	return focus
}

// Registration returns a copy of the form.
func (s *Session) Registration() domain.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registrationLocked()
}

func (s *Session) registrationLocked() domain.Registration {
	r := s.reg
	r.Cuisines = append([]string(nil), s.reg.Cuisines...)
	return r
}

// CompleteRegistration loads the created profile and clears the form.
func (s *Session) CompleteRegistration(p domain.UserProfile) {
	s.update("registration complete", func() bool {
		cp := copyProfile(p)
		s.profile = &cp
		s.reg = domain.Registration{}
		return true
	})
}

// SetProfile loads a profile for the session.
func (s *Session) SetProfile(p domain.UserProfile) {
	s.update("set profile", func() bool {
		cp := copyProfile(p)
		s.profile = &cp
		return true
	})
}

// Profile returns the loaded profile or ErrNoProfile.
func (s *Session) Profile() (domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return domain.UserProfile{}, domain.ErrNoProfile
	}
	return copyProfile(*s.profile), nil
}
