package generation

import (
	"fmt"
	"strings"
)

const maxLyricsContext = 4000

func songPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are a professional songwriter. Write complete, original song lyrics ")
	b.WriteString("with labelled sections ([Verse 1], [Chorus], [Bridge]).\n")
	if req.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", req.Title)
	}
	if req.Genre != "" {
		fmt.Fprintf(&b, "Genre: %s\n", req.Genre)
	}
	if req.Mood != "" {
		fmt.Fprintf(&b, "Mood: %s\n", req.Mood)
	}
	fmt.Fprintf(&b, "Idea: %s\n", req.Prompt)
	b.WriteString("Return only the lyrics.")
	return b.String()
}

func artPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Square album cover artwork, no text or lettering. ")
	if req.Genre != "" {
		fmt.Fprintf(&b, "Style suited to %s music. ", req.Genre)
	}
	if req.Mood != "" {
		fmt.Fprintf(&b, "Mood: %s. ", req.Mood)
	}
	if req.Title != "" {
		fmt.Fprintf(&b, "For a song called %q. ", req.Title)
	}
	b.WriteString(req.Prompt)
	return b.String()
}

func socialPrompt(req Request) string {
	platform := req.Platform
	if platform == "" {
		platform = "instagram"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a short %s post announcing a new song. Include a hook line and up to five hashtags.\n", platform)
	if req.Title != "" {
		fmt.Fprintf(&b, "Song title: %s\n", req.Title)
	}
	if req.Genre != "" {
		fmt.Fprintf(&b, "Genre: %s\n", req.Genre)
	}
	if lyrics := strings.TrimSpace(req.Lyrics); lyrics != "" {
		if len(lyrics) > maxLyricsContext {
			lyrics = lyrics[:maxLyricsContext]
		}
		fmt.Fprintf(&b, "Lyrics:\n%s\n", lyrics)
	}
	fmt.Fprintf(&b, "Notes: %s\n", req.Prompt)
	b.WriteString("Return only the post text.")
	return b.String()
}
