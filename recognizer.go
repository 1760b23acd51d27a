package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

// maxRecognitionBody bounds both the upload and the response read against
// the recognition upstream.
const maxRecognitionBody = 10 << 20

const placeholderCover = "/placeholder.svg?height=300&width=300"

// RecognitionClient submits normalized audio to the AudD API and maps its
// heterogeneous response into the canonical RecognitionResult.
type RecognitionClient struct {
	endpoint string
	token    string
	client   *http.Client
}

func newRecognitionClient(cfg *Config) *RecognitionClient {
	return &RecognitionClient{
		endpoint: cfg.AudDAPIURL,
		token:    cfg.AudDAPIToken,
		client:   &http.Client{Timeout: cfg.RecognizeTimeout},
	}
}

// Wire shapes of the AudD response; only the fields the mapping reads.
type auddResponse struct {
	Status string      `json:"status"`
	Result *auddResult `json:"result"`
}

type auddResult struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	ReleaseDate string `json:"release_date"`
	Spotify     *struct {
		Album struct {
			Images []struct {
				URL string `json:"url"`
			} `json:"images"`
		} `json:"album"`
		ExternalURLs struct {
			Spotify string `json:"spotify"`
		} `json:"external_urls"`
	} `json:"spotify"`
	AppleMusic *struct {
		URL     string `json:"url"`
		Artwork struct {
			URL string `json:"url"`
		} `json:"artwork"`
	} `json:"apple_music"`
}

// Recognize uploads audio and returns the mapped match. A present-but-empty
// upstream result is not a transport failure: it returns errNoMatch so the
// caller can answer "no music found" as a success.
func (c *RecognitionClient) Recognize(ctx context.Context, audio []byte) (*RecognitionResult, error) {
	if len(audio) == 0 {
		return nil, pipelineErrorf(ErrInvalidInput, "empty audio buffer")
	}
	if len(audio) > maxRecognitionBody {
		return nil, pipelineErrorf(ErrInvalidInput, "audio exceeds %d bytes", maxRecognitionBody)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="audio.mp3"`)
	h.Set("Content-Type", "audio/mpeg")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, &PipelineError{Kind: ErrInternal, Err: err}
	}
	if _, err := part.Write(audio); err != nil {
		return nil, &PipelineError{Kind: ErrInternal, Err: err}
	}
	// Ask the upstream to include streaming-catalog and media-store metadata
	// in the match.
	if err := mw.WriteField("return", "apple_music,spotify"); err != nil {
		return nil, &PipelineError{Kind: ErrInternal, Err: err}
	}
	if err := mw.Close(); err != nil {
		return nil, &PipelineError{Kind: ErrInternal, Err: err}
	}

	endpoint := c.endpoint
	if c.token != "" {
		endpoint += "?" + url.Values{"api_token": {c.token}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, &PipelineError{Kind: ErrInternal, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &PipelineError{Kind: ErrRecognitionFailed, Detail: "recognition request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, pipelineErrorf(ErrUpstreamRateLimited, "recognition service rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, pipelineErrorf(ErrRecognitionFailed, "recognition service returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRecognitionBody))
	if err != nil {
		return nil, &PipelineError{Kind: ErrRecognitionFailed, Detail: "reading recognition response", Err: err}
	}
	var parsed auddResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &PipelineError{Kind: ErrRecognitionFailed, Detail: "malformed recognition response", Err: err}
	}
	if parsed.Result == nil {
		return nil, errNoMatch
	}
	return mapResult(parsed.Result), nil
}

// mapResult derives the canonical result, preferring the Spotify album image
// for cover art, then the Apple Music artwork with its size template filled
// in, then a placeholder.
func mapResult(r *auddResult) *RecognitionResult {
	cover := ""
	if r.Spotify != nil && len(r.Spotify.Album.Images) > 0 {
		cover = r.Spotify.Album.Images[0].URL
	}
	if cover == "" && r.AppleMusic != nil && r.AppleMusic.Artwork.URL != "" {
		cover = strings.Replace(r.AppleMusic.Artwork.URL, "{w}x{h}", "300x300", 1)
	}
	if cover == "" {
		cover = placeholderCover
	}

	out := &RecognitionResult{
		Title:       r.Title,
		Artist:      r.Artist,
		Album:       r.Album,
		ReleaseDate: r.ReleaseDate,
		CoverURL:    cover,
	}
	if r.Spotify != nil {
		out.Spotify = r.Spotify.ExternalURLs.Spotify
	}
	if r.AppleMusic != nil {
		out.AppleMusic = r.AppleMusic.URL
	}
	return out
}
