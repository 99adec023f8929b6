package pinecone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mfields/doctheme/internal/index"
)

func TestQuery_MapsMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Api-Key"); got != "pc-key" {
			t.Errorf("api key header = %q", got)
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["topK"] != float64(5) {
			t.Errorf("topK = %v, want default 5", req["topK"])
		}
		if req["includeMetadata"] != true {
			t.Error("includeMetadata not set")
		}
		w.Write([]byte(`{"matches":[
			{"id":"doc_page-1","score":0.91,"metadata":{"doc_id":"doc.pdf","ref":"page-1","text":"passage"}},
			{"id":"bare","score":0.42}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "pc-key")
	matches, err := c.Query(context.Background(), []float64{0.1}, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d", len(matches))
	}
	if matches[0].DocID != "doc.pdf" || matches[0].Ref != "page-1" || matches[0].Text != "passage" {
		t.Errorf("match[0] = %+v", matches[0])
	}
	// Metadata-less matches still carry the score.
	if matches[1].Score != 0.42 || matches[1].DocID != "" {
		t.Errorf("match[1] = %+v", matches[1])
	}
}

func TestUpsert_SendsVectors(t *testing.T) {
	var got upsertRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/upsert" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"upsertedCount":1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "pc-key")
	err := c.Upsert(context.Background(), []index.Vector{{
		ID:       "doc_para-1",
		Values:   []float64{0.5},
		Metadata: index.Metadata{DocID: "doc.txt", Ref: "para-1", Text: "chunk"},
	}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(got.Vectors) != 1 || got.Vectors[0].ID != "doc_para-1" {
		t.Errorf("sent vectors = %+v", got.Vectors)
	}
}

func TestUpsert_EmptyIsNoop(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "pc-key")
	if err := c.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if called {
		t.Error("empty upsert should not hit the API")
	}
}

func TestDeleteByDoc_SendsFilter(t *testing.T) {
	var got deleteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/delete" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "pc-key")
	if err := c.DeleteByDoc(context.Background(), "doc.pdf"); err != nil {
		t.Fatalf("DeleteByDoc: %v", err)
	}
	eq, ok := got.Filter["doc_id"].(map[string]any)
	if !ok || eq["$eq"] != "doc.pdf" {
		t.Errorf("filter = %v", got.Filter)
	}
}

func TestPost_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "pc-key")
	if _, err := c.Query(context.Background(), []float64{0.1}, 5); err == nil {
		t.Fatal("Query returned nil error for 502")
	}
}
