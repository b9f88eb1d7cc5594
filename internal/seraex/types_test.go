package seraex

import "testing"

func sampleMetadata() SeriesMetadata {
	return SeriesMetadata{
		Seasons: []Season{
			{
				SeasonNumber: 1,
				EpisodeCount: 2,
				Episodes: []Episode{
					{Number: 1, Title: "A New Beginning"},
					{Number: 2},
				},
			},
			{
				SeasonNumber: 2,
				EpisodeCount: 1,
				Episodes: []Episode{
					{Number: 1, Title: "The Return"},
				},
			},
		},
	}
}

func TestTotalEpisodes(t *testing.T) {
	m := sampleMetadata()
	if got := m.TotalEpisodes(); got != 3 {
		t.Errorf("TotalEpisodes() = %d, want 3", got)
	}
}

func TestEpisodeTitleFoundAndFallback(t *testing.T) {
	m := sampleMetadata()

	if got := m.EpisodeTitle(1, 1); got != "A New Beginning" {
		t.Errorf("EpisodeTitle(1,1) = %q, want %q", got, "A New Beginning")
	}
	if got := m.EpisodeTitle(1, 2); got != "Episode 2" {
		t.Errorf("EpisodeTitle(1,2) = %q, want fallback %q", got, "Episode 2")
	}
	if got := m.EpisodeTitle(2, 1); got != "The Return" {
		t.Errorf("EpisodeTitle(2,1) = %q, want %q", got, "The Return")
	}
	if got := m.EpisodeTitle(9, 9); got != "Episode 9" {
		t.Errorf("EpisodeTitle(9,9) = %q, want fallback %q", got, "Episode 9")
	}
}

func TestSeasonByNumberMissing(t *testing.T) {
	m := sampleMetadata()
	if _, ok := m.SeasonByNumber(5); ok {
		t.Error("SeasonByNumber(5) should not be found")
	}
}
