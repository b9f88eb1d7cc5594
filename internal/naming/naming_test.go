package naming

import "testing"

func TestPlexEpisodeName(t *testing.T) {
	got := PlexEpisodeName("Attack on Titan", 1, 5, "The Fall of Shiganshina", ".mkv")
	want := "Attack on Titan - S01E05 - The Fall of Shiganshina.mkv"
	if got != want {
		t.Errorf("PlexEpisodeName = %q, want %q", got, want)
	}
}

func TestPlexEpisodeNameWithoutTitle(t *testing.T) {
	got := PlexEpisodeName("Attack on Titan", 2, 1, "", ".mp4")
	want := "Attack on Titan - S02E01.mp4"
	if got != want {
		t.Errorf("PlexEpisodeName = %q, want %q", got, want)
	}
}

func TestPlexEpisodeNameStripsInvalidChars(t *testing.T) {
	got := PlexEpisodeName(`Show: "Part 2"`, 1, 1, "A/B?", ".mkv")
	for _, bad := range []string{"<", ">", ":", `"`, "/", "\\", "|", "?", "*"} {
		if containsRune(got, bad) {
			t.Errorf("PlexEpisodeName result %q still contains invalid char %q", got, bad)
		}
	}
}

func TestCleanShowName(t *testing.T) {
	got := CleanShowName(`  My Show:  "Extended"   `)
	want := `My Show Extended`
	if got != want {
		t.Errorf("CleanShowName = %q, want %q", got, want)
	}
}

func TestCleanSearchName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"[SubsPlease] My Show S01 (1080p) [BDRip]", "My Show Season 01"},
		{"My_Show.S02.x265.HEVC", "My Show Season 02"},
		{"Some-Show-720p-WEB-DL", "Some Show"},
	}
	for _, c := range cases {
		got := CleanSearchName(c.in)
		if got != c.want {
			t.Errorf("CleanSearchName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestResolveShowName(t *testing.T) {
	if got := ResolveShowName("English Title", "Romaji Title", "/x/Source Dir"); got != "English Title" {
		t.Errorf("got %q, want English Title", got)
	}
	if got := ResolveShowName("", "Romaji Title", "/x/Source Dir"); got != "Romaji Title" {
		t.Errorf("got %q, want Romaji Title", got)
	}
	if got := ResolveShowName("", "", "/x/Source Dir"); got != "Source Dir" {
		t.Errorf("got %q, want Source Dir", got)
	}
}

func TestParseSeasonEpisodeRoundTrip(t *testing.T) {
	name := PlexEpisodeName("Show", 3, 12, "Title", ".mkv")
	season, episode, ok := ParseSeasonEpisode(name)
	if !ok {
		t.Fatalf("ParseSeasonEpisode(%q) failed to parse", name)
	}
	if season != 3 || episode != 12 {
		t.Errorf("got (%d, %d), want (3, 12)", season, episode)
	}
}

func TestParseSeasonEpisodeNoMatch(t *testing.T) {
	if _, _, ok := ParseSeasonEpisode("not-an-episode-name.mkv"); ok {
		t.Error("expected no match")
	}
}

func containsRune(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
