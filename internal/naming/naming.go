// Package naming implements the filename and show-name transforms the
// library and disc coordinators apply: Plex episode naming, the
// CleanShowName rule, and the search-string cleanup performed before a
// folder name is sent to the catalogue client. The regex-pipeline approach
// follows the teacher's title-cleaning code in internal/metadata/automatch.go.
package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var invalidFilesystemChars = regexp.MustCompile(`[<>:"/\\|?*]`)
var multiSpaceRx = regexp.MustCompile(`\s+`)

// PlexEpisodeName builds "<Show> - S<ss>E<ee>[ - <Title>].<ext>", stripping
// filesystem-invalid characters and collapsing whitespace.
func PlexEpisodeName(show string, season, episode int, title, ext string) string {
	base := fmt.Sprintf("%s - S%02dE%02d", show, season, episode)
	if strings.TrimSpace(title) != "" {
		base += " - " + title
	}
	return sanitizeFilesystemName(base) + ext
}

// CleanShowName strips filesystem-invalid characters, collapses whitespace
// runs, and trims — used to name the show's directory under _structured/,
// staging, and output.
func CleanShowName(name string) string {
	return sanitizeFilesystemName(name)
}

func sanitizeFilesystemName(name string) string {
	cleaned := invalidFilesystemChars.ReplaceAllString(name, "")
	cleaned = multiSpaceRx.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

var (
	bracketGroupRx  = regexp.MustCompile(`\[[^\]]*\]`)
	parenGroupRx    = regexp.MustCompile(`\([^)]*\)`)
	seasonDigitsRx  = regexp.MustCompile(`(?i)\bS(\d+)\b`)
	underscoreDashDotRx = regexp.MustCompile(`[._\-]+`)
)

var qualityTokens = []string{
	"1080p", "720p", "480p", "2160p", "4K", "x264", "x265", "HEVC", "AVC",
	"FLAC", "AAC", "BD", "BluRay", "BDRip", "WEB-DL", "WEBRip",
}

var qualityTokenRx = buildQualityTokenRegex()

func buildQualityTokenRegex() *regexp.Regexp {
	escaped := make([]string, len(qualityTokens))
	for i, tok := range qualityTokens {
		escaped[i] = regexp.QuoteMeta(tok)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
}

// CleanSearchName prepares a disc folder's name for the catalogue client:
// removes bracket/paren groups, strips quality tokens, rewrites "S<digits>"
// to "Season <digits>", replaces separator runs with spaces, and collapses
// whitespace.
func CleanSearchName(folderName string) string {
	cleaned := bracketGroupRx.ReplaceAllString(folderName, " ")
	cleaned = parenGroupRx.ReplaceAllString(cleaned, " ")
	cleaned = qualityTokenRx.ReplaceAllString(cleaned, " ")
	cleaned = seasonDigitsRx.ReplaceAllString(cleaned, "Season $1")
	cleaned = underscoreDashDotRx.ReplaceAllString(cleaned, " ")
	cleaned = multiSpaceRx.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// ResolveShowName prefers the first season's English title, then romaji,
// then the basename of the source directory.
func ResolveShowName(englishTitle, romajiTitle, sourceDir string) string {
	if strings.TrimSpace(englishTitle) != "" {
		return englishTitle
	}
	if strings.TrimSpace(romajiTitle) != "" {
		return romajiTitle
	}
	return filepath.Base(sourceDir)
}

// ParseSeasonEpisode extracts (season, episode) from a Plex-named basename
// of the form "... - S<ss>E<ee> ...", used by the round-trip-naming
// invariant: parsing a renamed file's basename must reproduce the numbers
// that produced it.
var seasonEpisodeRx = regexp.MustCompile(`(?i)S(\d{2,})E(\d{2,})`)

func ParseSeasonEpisode(name string) (season, episode int, ok bool) {
	m := seasonEpisodeRx.FindStringSubmatch(name)
	if len(m) != 3 {
		return 0, 0, false
	}
	s, err1 := strconv.Atoi(m[1])
	e, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return s, e, true
}
