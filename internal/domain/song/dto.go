package song

import (
	"time"

	"github.com/google/uuid"
)

// SaveRequest is the body of POST /songs.
type SaveRequest struct {
	Title  string `json:"title" validate:"required,max=200"`
	Lyrics string `json:"lyrics" validate:"required,max=50000"`
	Genre  string `json:"genre" validate:"omitempty,max=64"`
	ArtURL string `json:"art_url" validate:"omitempty,url,max=2048"`
}

// Response is the public shape of a song.
type Response struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Lyrics    string    `json:"lyrics"`
	Genre     string    `json:"genre,omitempty"`
	ArtURL    string    `json:"art_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveResponse adds the referral outcome to a freshly saved song.
type SaveResponse struct {
	Song             Response `json:"song"`
	ReferralRewarded bool     `json:"referral_rewarded"`
}

func NewResponse(s *Song) Response {
	resp := Response{
		ID:        s.ID,
		Title:     s.Title,
		Lyrics:    s.Lyrics,
		Genre:     s.Genre,
		CreatedAt: s.CreatedAt,
	}
	if s.ArtURL.Valid {
		resp.ArtURL = s.ArtURL.String
	}
	return resp
}

func NewListResponse(songs []Song) []Response {
	out := make([]Response, len(songs))
	for i := range songs {
		out[i] = NewResponse(&songs[i])
	}
	return out
}
