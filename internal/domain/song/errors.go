package song

import "errors"

var (
	ErrSongNotFound = errors.New("song not found")
)
