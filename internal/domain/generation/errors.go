package generation

import "errors"

var (
	ErrUnknownKind      = errors.New("unknown generation kind")
	ErrGenerationFailed = errors.New("generation failed")
	ErrArtUnavailable   = errors.New("album art storage is not configured")
)
