package catalogue

import (
	"context"

	"github.com/Reclyptor/SERAEX/internal/seraex"
)

// SearchInput is the input to the SearchSeries activity.
type SearchInput struct {
	GraphQLURL string `json:"graphql_url"`
	SearchName string `json:"search_name"`
}

// SearchOutput is the output of the SearchSeries activity.
type SearchOutput struct {
	Found bool        `json:"found"`
	Seed  SeriesEntry `json:"seed"`
}

// SearchSeriesActivity searches AniList for searchName and returns the best
// match as the seed to traverse relations from. This covers the "searching"
// stage of metadataSummary.status.
func SearchSeriesActivity(ctx context.Context, in SearchInput) (SearchOutput, error) {
	client := New(in.GraphQLURL)

	candidates, err := client.SearchAnimeByName(ctx, in.SearchName)
	if err != nil {
		return SearchOutput{}, err
	}
	if len(candidates) == 0 {
		return SearchOutput{Found: false}, nil
	}
	return SearchOutput{Found: true, Seed: candidates[0]}, nil
}

// TraverseInput is the input to the TraverseSeasons activity.
type TraverseInput struct {
	GraphQLURL string      `json:"graphql_url"`
	Seed       SeriesEntry `json:"seed"`
}

// TraverseOutput is the output of the TraverseSeasons activity.
type TraverseOutput struct {
	Seasons []SeriesEntry `json:"seasons"`
}

// TraverseSeasonsActivity walks the prequel/sequel relation graph from Seed
// and returns every season found, in broadcast order. This covers the
// "traversing" stage of metadataSummary.status.
func TraverseSeasonsActivity(ctx context.Context, in TraverseInput) (TraverseOutput, error) {
	client := New(in.GraphQLURL)
	seasons, err := client.DiscoverAllSeasons(ctx, in.Seed)
	if err != nil {
		return TraverseOutput{}, err
	}
	return TraverseOutput{Seasons: seasons}, nil
}

// FetchSeasonEpisodesInput is the input to the FetchSeasonEpisodes activity.
type FetchSeasonEpisodesInput struct {
	GraphQLURL string `json:"graphql_url"`
	AnilistID  int    `json:"anilist_id"`
}

// FetchSeasonEpisodesOutput is the output of the FetchSeasonEpisodes
// activity.
type FetchSeasonEpisodesOutput struct {
	Titles []string `json:"titles"`
}

// FetchSeasonEpisodesActivity fetches one season's per-episode titles. The
// workflow calls this once per season TraverseSeasonsActivity returned, so
// progress polled mid-franchise reflects which season is currently loading
// (the "fetching_episodes" stage of metadataSummary.status).
func FetchSeasonEpisodesActivity(ctx context.Context, in FetchSeasonEpisodesInput) (FetchSeasonEpisodesOutput, error) {
	client := New(in.GraphQLURL)
	titles, err := client.FetchSeasonEpisodes(ctx, in.AnilistID)
	if err != nil {
		return FetchSeasonEpisodesOutput{}, err
	}
	return FetchSeasonEpisodesOutput{Titles: titles}, nil
}

// BuildSeriesMetadata assembles a seraex.SeriesMetadata from the seasons
// TraverseSeasonsActivity found and the per-season episode titles
// FetchSeasonEpisodesActivity fetched for each, keyed by AniList ID.
func BuildSeriesMetadata(seasons []SeriesEntry, titlesByID map[int][]string) seraex.SeriesMetadata {
	metadata := seraex.SeriesMetadata{}
	for i, s := range seasons {
		titles := titlesByID[s.ID]
		episodeCount := s.EpisodeCount
		if episodeCount == 0 {
			episodeCount = len(titles)
		}
		episodes := make([]seraex.Episode, episodeCount)
		for n := 0; n < episodeCount; n++ {
			title := ""
			if n < len(titles) {
				title = titles[n]
			}
			episodes[n] = seraex.Episode{Number: n + 1, Title: title}
		}
		metadata.Seasons = append(metadata.Seasons, seraex.Season{
			SeasonNumber: i + 1,
			CatalogueID:  s.ID,
			TitleEnglish: s.TitleEnglish,
			TitleRomaji:  s.TitleRomaji,
			EpisodeCount: episodeCount,
			Episodes:     episodes,
		})
	}
	return metadata
}
