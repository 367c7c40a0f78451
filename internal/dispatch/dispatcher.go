// Package dispatch turns recognised utterances into session transitions.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hammamikhairi/foodlens/internal/conversation"
	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/enrich"
	"github.com/hammamikhairi/foodlens/internal/logger"
	"github.com/hammamikhairi/foodlens/internal/mailbox"
	"github.com/hammamikhairi/foodlens/internal/session"
)

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithEarcon plays a cue after every matched command.
func WithEarcon(e domain.Earcon) Option {
	return func(d *Dispatcher) { d.earcon = e }
}

// WithProfileTimeout bounds calls to the profile store.
func WithProfileTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.profileTimeout = t }
}

// Dispatcher performs exactly one session transition per command.
type Dispatcher struct {
	session        *session.Session
	grammar        *conversation.Grammar
	enrich         *enrich.Pipeline
	profiles       domain.ProfileStore
	notifier       domain.Notifier
	earcon         domain.Earcon
	log            *logger.Logger
	profileTimeout time.Duration
}

// New creates a dispatcher.
func New(
	sess *session.Session,
	grammar *conversation.Grammar,
	pipeline *enrich.Pipeline,
	profiles domain.ProfileStore,
	notifier domain.Notifier,
	log *logger.Logger,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		session:        sess,
		grammar:        grammar,
		enrich:         pipeline,
		profiles:       profiles,
		notifier:       notifier,
		earcon:         silent{},
		log:            log,
		profileTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run applies utterances from transcripts until ctx is cancelled. Only
// the newest pending utterance is applied; older ones are dropped.
func (d *Dispatcher) Run(ctx context.Context, transcripts *mailbox.Latest[string]) {
	go func() {
		<-ctx.Done()
		transcripts.Close()
	}()

	d.log.Info("dispatcher started")
	for {
		text, ok := transcripts.Take()
		if !ok {
			d.log.Info("dispatcher stopped")
			return
		}
		d.handle(ctx, text)
	}
}

// handle dispatches one utterance. A panic in a collaborator is logged
// and the loop goes on with the next utterance.
func (d *Dispatcher) handle(ctx context.Context, text string) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("dispatch: %q: panic: %v", text, r)
		}
	}()
	if _, err := d.Dispatch(ctx, text); err != nil {
		d.log.Warn("dispatch: %q: %v", text, err)
	}
}

// Dispatch matches utterance against the grammar and applies the
// command. An utterance that matches nothing is recorded as the
// transcript and otherwise ignored: the returned intent is nil.
func (d *Dispatcher) Dispatch(ctx context.Context, utterance string) (*domain.Intent, error) {
	d.session.SetTranscript(utterance)

	intent, ok := d.grammar.Match(utterance)
	if !ok {
		return nil, nil
	}
	return intent, d.Apply(ctx, intent)
}

// Apply runs the transition for intent and reports the outcome to the
// user.
func (d *Dispatcher) Apply(ctx context.Context, intent *domain.Intent) error {
	msg, err := d.apply(ctx, intent)
	if err != nil {
		d.earcon.Reject()
		d.notifier.NotifyUrgent(ctx, failureMessage(err))
		return fmt.Errorf("dispatch: %s: %w", intent.Type, err)
	}
	d.earcon.Accept()
	if msg != "" {
		d.notifier.Notify(ctx, msg)
	}
	d.log.Debug("dispatch: applied %s", intent.Type)
	return nil
}

func (d *Dispatcher) apply(ctx context.Context, intent *domain.Intent) (string, error) {
	switch intent.Type {
	case domain.IntentStartDetection:
		d.session.StartDetection()
		return "Detección iniciada", nil

	case domain.IntentStopDetection:
		d.session.StopDetection()
		return "Detección detenida", nil

	case domain.IntentOpenMenu:
		d.session.OpenMenu()
		return "", nil

	case domain.IntentCloseMenu:
		d.session.CloseMenu()
		return "", nil

	case domain.IntentEnrich:
		if err := d.enrich.Trigger(ctx); err != nil {
			return "", err
		}
		return "Buscando información nutricional...", nil

	case domain.IntentShowRecipes:
		d.session.ShowRecipes()
		return "", nil

	case domain.IntentNextRecipe:
		d.session.NextRecipe()
		return "", nil

	case domain.IntentPreviousRecipe:
		d.session.PreviousRecipe()
		return "", nil

	case domain.IntentTogglePreparation:
		d.session.TogglePreparation()
		return "", nil

	case domain.IntentSaveFavorite:
		return d.saveFavorite(ctx)

	case domain.IntentSetName:
		return d.setField(domain.FieldName, intent.Payload)

	case domain.IntentSetBirthDate:
		return d.setField(domain.FieldBirthDate, intent.Payload)

	case domain.IntentSetCuisines:
		return d.setField(domain.FieldCuisines, intent.Payload)

	case domain.IntentSubmitRegistration:
		return d.submitRegistration(ctx)

	default:
		return "", fmt.Errorf("unsupported intent %s", intent.Type)
	}
}

func (d *Dispatcher) setField(field domain.RegistrationField, value string) (string, error) {
	if value == "" {
		return "", fmt.Errorf("%w: empty %s", domain.ErrRegistrationIncomplete, field)
	}
	next := d.session.SetRegistrationField(field, value)
	d.log.Debug("dispatch: registration %s set, focus -> %s", field, next)
	return fmt.Sprintf("Registro: %s guardado", fieldLabel(field)), nil
}

func (d *Dispatcher) submitRegistration(ctx context.Context) (string, error) {
	reg := d.session.Registration()
	if !reg.Complete() {
		return "", domain.ErrRegistrationIncomplete
	}

	ctx, cancel := context.WithTimeout(ctx, d.profileTimeout)
	defer cancel()

	created, err := d.profiles.CreateProfile(ctx, reg.Profile())
	if err != nil {
		return "", err
	}
	d.session.CompleteRegistration(*created)
	return fmt.Sprintf("Bienvenido, %s", created.Name), nil
}

func (d *Dispatcher) saveFavorite(ctx context.Context) (string, error) {
	profile, err := d.session.Profile()
	if err != nil {
		return "", err
	}
	recipe, err := d.session.CurrentRecipe()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, d.profileTimeout)
	defer cancel()

	if err := d.profiles.SaveFavorite(ctx, domain.Favorite{UserID: profile.ID, Recipe: recipe}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Receta guardada: %s", recipe.Title), nil
}

// LoadProfile fetches a stored profile and loads it into the session.
func (d *Dispatcher) LoadProfile(ctx context.Context, id string) (*domain.UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, d.profileTimeout)
	defer cancel()

	p, err := d.profiles.GetProfile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("dispatch: loading profile %s: %w", id, err)
	}
	d.session.SetProfile(*p)
	d.log.Info("dispatch: profile %s (%s) loaded", p.ID, p.Name)
	return p, nil
}

func fieldLabel(f domain.RegistrationField) string {
	switch f {
	case domain.FieldName:
		return "nombre"
	case domain.FieldBirthDate:
		return "fecha de nacimiento"
	case domain.FieldCuisines:
		return "cocinas favoritas"
	default:
		return f.String()
	}
}

// failureMessage is what the user sees when a command fails.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEnrichmentInFlight):
		return "Ya estoy buscando la información"
	case errors.Is(err, domain.ErrNothingToEnrich):
		return "No hay alimentos detectados"
	case errors.Is(err, domain.ErrRegistrationIncomplete):
		return "Faltan datos del registro (nombre y fecha de nacimiento)"
	case errors.Is(err, domain.ErrNoProfile):
		return "Primero regístrate o elige un usuario"
	case errors.Is(err, domain.ErrNoRecipe):
		return "No hay ninguna receta seleccionada"
	case errors.Is(err, domain.ErrProfileService):
		return "El servicio de usuarios no responde"
	default:
		return "No se pudo completar la orden"
	}
}

type silent struct{}

func (silent) Accept() {}
func (silent) Reject() {}
