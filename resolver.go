package main

import (
	"net/url"
	"regexp"
	"strings"
)

// ID shapes validated before a MediaReference is handed downstream. A URL on
// a supported host whose ID does not match is treated the same as an
// unsupported host.
var (
	youtubeIDPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	tiktokVideoPattern = regexp.MustCompile(`^[0-9]{5,21}$`)
	tiktokShortPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	instagramPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// resolveMediaURL parses a social-media URL into a MediaReference. It is pure
// parsing: no network calls, and it fails closed. Malformed URLs and
// unrecognized hosts return nil, never an error. The caller decides whether
// a nil result means "reject" or "treat as a generic downloadable link".
//
// Platform blocks are evaluated YouTube, then Instagram, then TikTok; the
// first non-empty match within a block wins.
func resolveMediaURL(raw string) *MediaReference {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	bare := strings.TrimPrefix(strings.TrimPrefix(host, "www."), "m.")

	switch {
	case bare == "youtube.com" || bare == "youtu.be":
		return resolveYouTube(u, bare, raw)
	case bare == "instagram.com":
		return resolveInstagram(u, raw)
	case bare == "tiktok.com" || host == "vm.tiktok.com":
		return resolveTikTok(u, host, raw)
	}
	return nil
}

func resolveYouTube(u *url.URL, host, raw string) *MediaReference {
	segs := splitPath(u.Path)

	if host == "youtu.be" {
		if len(segs) > 0 && youtubeIDPattern.MatchString(segs[0]) {
			return &MediaReference{Platform: PlatformYouTube, MediaID: segs[0], OriginalURL: raw, Variant: VariantShort}
		}
		return nil
	}

	// Path rules take precedence over the v query parameter, so a shorts URL
	// with a stray query string still resolves as a short.
	if len(segs) >= 2 && segs[0] == "shorts" && youtubeIDPattern.MatchString(segs[1]) {
		return &MediaReference{Platform: PlatformYouTube, MediaID: segs[1], OriginalURL: raw, Variant: VariantShort}
	}
	if id := u.Query().Get("v"); youtubeIDPattern.MatchString(id) {
		return &MediaReference{Platform: PlatformYouTube, MediaID: id, OriginalURL: raw, Variant: VariantFull}
	}
	return nil
}

func resolveInstagram(u *url.URL, raw string) *MediaReference {
	segs := splitPath(u.Path)

	// /p/<id>, /reel/<id>
	if len(segs) >= 2 && (segs[0] == "p" || segs[0] == "reel") && instagramPattern.MatchString(segs[1]) {
		return &MediaReference{Platform: PlatformInstagram, MediaID: segs[1], OriginalURL: raw, Variant: VariantFull}
	}
	// /stories/<user>/<id>, /stories/highlights/<id>
	if len(segs) >= 3 && segs[0] == "stories" && instagramPattern.MatchString(segs[2]) {
		variant := VariantStory
		if segs[1] == "highlights" {
			variant = VariantHighlight
		}
		return &MediaReference{Platform: PlatformInstagram, MediaID: segs[2], OriginalURL: raw, Variant: variant}
	}
	return nil
}

func resolveTikTok(u *url.URL, host, raw string) *MediaReference {
	segs := splitPath(u.Path)

	// Short links (vm.tiktok.com/<id>, tiktok.com/t/<id>) carry an opaque ID
	// that needs a redirect hop downstream before it names a video.
	if host == "vm.tiktok.com" {
		if len(segs) > 0 && tiktokShortPattern.MatchString(segs[0]) {
			return &MediaReference{Platform: PlatformTikTok, MediaID: segs[0], OriginalURL: raw, Variant: VariantShort}
		}
		return nil
	}
	if len(segs) >= 2 && segs[0] == "t" && tiktokShortPattern.MatchString(segs[1]) {
		return &MediaReference{Platform: PlatformTikTok, MediaID: segs[1], OriginalURL: raw, Variant: VariantShort}
	}
	// /@user/video/<id>
	for i, s := range segs {
		if s == "video" && i+1 < len(segs) && tiktokVideoPattern.MatchString(segs[i+1]) {
			return &MediaReference{Platform: PlatformTikTok, MediaID: segs[i+1], OriginalURL: raw, Variant: VariantFull}
		}
	}
	return nil
}

func splitPath(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// parsePlatform maps a client-supplied platform hint to a Platform. Empty
// means "let the resolver decide"; anything unknown is rejected before any
// external call is made.
func parsePlatform(s string) (Platform, error) {
	switch strings.ToLower(s) {
	case "":
		return "", nil
	case "youtube":
		return PlatformYouTube, nil
	case "tiktok":
		return PlatformTikTok, nil
	case "instagram":
		return PlatformInstagram, nil
	case "generic":
		return PlatformGeneric, nil
	}
	return "", pipelineErrorf(ErrUnsupportedPlatform, "unsupported platform %q", s)
}
