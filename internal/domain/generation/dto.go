package generation

// Request is the body of POST /generate/{kind}. Fields that do not apply to
// a kind are ignored.
type Request struct {
	Prompt   string `json:"prompt" validate:"required,max=2000"`
	Title    string `json:"title" validate:"omitempty,max=200"`
	Genre    string `json:"genre" validate:"omitempty,max=64"`
	Mood     string `json:"mood" validate:"omitempty,max=64"`
	Lyrics   string `json:"lyrics" validate:"omitempty,max=20000"`
	Platform string `json:"platform" validate:"omitempty,oneof=instagram tiktok twitter youtube"`
}

// Result is what a successful generation returns.
type Result struct {
	Kind         Kind   `json:"kind"`
	Text         string `json:"text,omitempty"`
	CoverURL     string `json:"cover_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	CreditsSpent int    `json:"credits_spent"`
	Balance      int    `json:"balance"`
}
