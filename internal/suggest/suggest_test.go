package suggest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"esp-translator/internal/stringunit"
)

func TestNgramEmbedder(t *testing.T) {
	e := NewNgramEmbedder(128)
	vs, err := e.Embed(context.Background(), []string{"Iron Sword", "iron sword!", "Glass Bow", ""})
	if err != nil {
		t.Fatal(err)
	}
	if len(vs[0]) != 128 {
		t.Fatalf("dimension = %d", len(vs[0]))
	}
	if s := Cosine(vs[0], vs[1]); s < 0.999 {
		t.Fatalf("case and punctuation should not matter, similarity %f", s)
	}
	if Cosine(vs[0], vs[2]) >= Cosine(vs[0], vs[1]) {
		t.Fatal("different words should be less similar")
	}
	if Cosine(vs[0], vs[3]) != 0 {
		t.Fatal("empty text has a zero vector")
	}
}

func TestEmbeddingClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" || r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("unexpected request %s", r.URL.Path)
		}
		var req embeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := embeddingResponse{}
		// Answer out of order to check that results follow the index.
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, embeddingData{Index: i, Embedding: []float32{float32(len(req.Input[i]))}})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	ec := NewEmbeddingClient("key", "model", srv.URL+"/v1/", 1)
	got, err := EmbedBatch(context.Background(), ec, []string{"a", "bb", "ccc"}, 2)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(got) != 3 || got[0][0] != 1 || got[1][0] != 2 || got[2][0] != 3 {
		t.Fatalf("got %v", got)
	}
}

func TestEmbeddingClientRetry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			http.Error(w, "slow down", http.StatusTooManyRequests)
		default:
			json.NewEncoder(w).Encode(embeddingResponse{Data: []embeddingData{{Index: 0, Embedding: []float32{1}}}})
		}
	}))
	defer srv.Close()

	ec := NewEmbeddingClient("key", "model", srv.URL, 1)
	ec.retryDelay = time.Millisecond
	if _, err := ec.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer bad.Close()
	calls = 0
	ec = NewEmbeddingClient("key", "model", bad.URL, 1)
	ec.retryDelay = time.Millisecond
	if _, err := ec.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error for 401")
	}
	if calls != 1 {
		t.Fatalf("401 was retried %d times", calls-1)
	}
}

func unit(original, translated string, status stringunit.Status) stringunit.Unit {
	return stringunit.Unit{FormID: "01000001|Mod.esp", Type: "WEAP FULL", Original: original, Translated: &translated, Status: status}
}

func TestSuggester(t *testing.T) {
	ctx := context.Background()
	s := NewSuggester(NewNgramEmbedder(256), NewMemoryIndex(), "German", 10)
	n, err := s.Index(ctx, []stringunit.Unit{
		unit("Iron Sword", "Eisenschwert", stringunit.TranslationComplete),
		unit("Iron Sword", "Eisenschwert", stringunit.TranslationComplete),
		unit("Glass Bow", "Glasbogen", stringunit.TranslationIncomplete),
		unit("Steel Shield", "Steel Shield", stringunit.TranslationComplete),
		unit("Daedric Axe", "Daedrische Axt", stringunit.TranslationRequired),
	})
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if n != 2 {
		t.Fatalf("indexed %d records", n)
	}

	matches, err := s.Suggest(ctx, "Iron Swords", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 || matches[0].Translated != "Eisenschwert" || matches[0].Score <= matches[1].Score {
		t.Fatalf("matches = %+v", matches)
	}

	refs, err := s.References(ctx, "Iron Sword")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs["Iron Sword"] != "Eisenschwert" {
		t.Fatalf("references = %v", refs)
	}

	other := NewSuggester(NewNgramEmbedder(256), s.index, "french", 10)
	if m, _ := other.Suggest(ctx, "Iron Sword", 5); len(m) != 0 {
		t.Fatalf("other language matched %+v", m)
	}
}
