package domain

import "context"

// Detector sends one frame to the object-detection service and returns
// the raw detections. Implementations must honour ctx cancellation.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]RawDetection, error)
}

// FrameSource hands out the most recent camera frame. Latest returns
// ErrNoFrame when nothing has been captured yet.
type FrameSource interface {
	Latest() (Frame, error)
}

// Enricher asks the reasoning service for nutrition data and recipes
// for the given detection names. profile may be nil.
type Enricher interface {
	Enrich(ctx context.Context, names []string, profile *UserProfile) (*Enrichment, error)
}

// ProfileStore persists user profiles and favorite recipes.
// Implementations can be a REST API, Supabase, or in-memory.
type ProfileStore interface {
	ListUsers(ctx context.Context) ([]UserProfile, error)
	GetProfile(ctx context.Context, id string) (*UserProfile, error)
	CreateProfile(ctx context.Context, profile UserProfile) (*UserProfile, error)
	SaveFavorite(ctx context.Context, fav Favorite) error
}

// Notifier delivers short status messages to the user. Implementations
// can print to the terminal or add an audible cue.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}

// Earcon plays short non-verbal cues: Accept when a command was carried
// out, Reject when it failed. Implementations must not block.
type Earcon interface {
	Accept()
	Reject()
}
