package recipe

import (
	"errors"

	"github.com/hammamikhairi/foodlens/internal/domain"
)

// ErrorPlaceholder builds the single entry shown in place of recipes
// when enrichment fails, so the menu never sits on "loading" silently.
func ErrorPlaceholder(err error) domain.Recipe {
	msg := "No se pudo obtener la información. Inténtalo de nuevo."
	switch {
	case errors.Is(err, domain.ErrUnreachable):
		msg = "El servicio de recetas no responde. Inténtalo de nuevo."
	case errors.Is(err, domain.ErrMalformedResponse):
		msg = "La respuesta del servicio de recetas no es válida. Inténtalo de nuevo."
	}
	return domain.Recipe{
		Title:       "Error",
		Ingredients: domain.Unavailable,
		Preparation: msg,
	}
}
