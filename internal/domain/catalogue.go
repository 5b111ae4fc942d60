package domain

import "context"

// VideoHandle is the catalogue's view of a playable video item.
type VideoHandle struct {
	ID         string
	Path       string
	DurationSec int
	ThumbsPath string // root of the precomputed trickplay sprite tree, if any
}

// AudioHandle is the catalogue's view of a playable audio-only item.
type AudioHandle struct {
	ID   string
	Path string
}

// Principal is the authenticated caller, as resolved by the catalogue's
// bearer-token verification.
type Principal struct {
	Subject string
}

// Catalogue is the narrow read interface the core consumes (spec.md §6).
// Persistent storage, metadata acquisition and library scanning all live
// on the other side of this interface and are out of scope here.
type Catalogue interface {
	GetVideo(ctx context.Context, mediaID string) (*VideoHandle, error)
	GetAudio(ctx context.Context, mediaID string) (*AudioHandle, error)
	GetTranscodingSettings(ctx context.Context) (TranscodingSettings, error)
}

// BearerVerifier validates an opaque bearer token. Validation mechanics
// (token format, signing, revocation) are delegated entirely to the
// implementation; the core only honors the resulting Principal.
type BearerVerifier interface {
	VerifyBearer(ctx context.Context, token string) (*Principal, error)
}
