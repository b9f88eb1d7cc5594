package catalogue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchAnimeByNameParsesRelations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"Page":{"media":[
			{"id":1,"format":"TV","episodes":12,"title":{"english":"Example Show","romaji":"Ex Show"},
			 "relations":{"edges":[
			   {"relationType":"SEQUEL","node":{"id":2,"format":"TV"}},
			   {"relationType":"SIDE_STORY","node":{"id":3,"format":"OVA"}}
			 ]}}
		]}}}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	entries, err := client.SearchAnimeByName(context.Background(), "Example Show")
	if err != nil {
		t.Fatalf("SearchAnimeByName: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.TitleEnglish != "Example Show" || entry.EpisodeCount != 12 {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if len(entry.Relations) != 1 || entry.Relations[0].RelationType != "SEQUEL" {
		t.Errorf("expected only the TV SEQUEL relation to survive, got %+v", entry.Relations)
	}
}

func TestDoReturnsErrorOnGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"rate limited"}]}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	_, err := client.SearchAnimeByName(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestDiscoverAllSeasonsWalksPrequelAndSequel(t *testing.T) {
	byID := map[int]string{
		1: `{"id":1,"format":"TV","episodes":12,"title":{"english":"Season One","romaji":"S1"},
		     "relations":{"edges":[{"relationType":"SEQUEL","node":{"id":2,"format":"TV"}}]}}`,
		2: `{"id":2,"format":"TV","episodes":12,"title":{"english":"Season Two","romaji":"S2"},
		     "relations":{"edges":[{"relationType":"PREQUEL","node":{"id":1,"format":"TV"}}]}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		id := int(req.Variables["id"].(float64))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"Media":` + byID[id] + `}}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	seed := SeriesEntry{
		ID: 1, TitleEnglish: "Season One", Format: "TV", EpisodeCount: 12,
		Relations: []Relation{{RelationType: "SEQUEL", ID: 2}},
	}
	seasons, err := client.DiscoverAllSeasons(context.Background(), seed)
	if err != nil {
		t.Fatalf("DiscoverAllSeasons: %v", err)
	}
	if len(seasons) != 2 {
		t.Fatalf("expected 2 seasons, got %d: %+v", len(seasons), seasons)
	}
	if seasons[0].ID != 1 || seasons[1].ID != 2 {
		t.Errorf("expected broadcast order [1,2], got [%d,%d]", seasons[0].ID, seasons[1].ID)
	}
}
