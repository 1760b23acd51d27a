package main

// Platform identifies the originating social-media service, or "generic" for
// arbitrary direct media URLs.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformGeneric   Platform = "generic"
)

// Variant distinguishes the kind of post a media URL points at.
type Variant string

const (
	VariantFull      Variant = "full"
	VariantShort     Variant = "short"
	VariantStory     Variant = "story"
	VariantHighlight Variant = "highlight"
)

// MediaReference is the result of resolving a social-media URL: the platform
// and the platform-specific media ID. Immutable once produced.
type MediaReference struct {
	Platform    Platform `json:"platform"`
	MediaID     string   `json:"media_id"`
	OriginalURL string   `json:"original_url"`
	Variant     Variant  `json:"variant"`
}

// RecognitionResult is the canonical shape returned to clients for a
// successful music match. Everything except title/artist is optional.
type RecognitionResult struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	ReleaseDate string `json:"releaseDate,omitempty"`
	CoverURL    string `json:"coverUrl"`
	Spotify     string `json:"spotify,omitempty"`
	AppleMusic  string `json:"appleMusic,omitempty"`
}

// recognizeRequest is the JSON body accepted by /api/recognize-music when no
// file is uploaded.
type recognizeRequest struct {
	URL      string `json:"url"`
	Platform string `json:"platform,omitempty"`
}

type HealthStatus struct {
	Status string `json:"status"`
	Ytdlp  string `json:"ytdlp,omitempty"`
	Error  string `json:"error,omitempty"`
}
