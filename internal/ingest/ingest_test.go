package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/osintlab/sleuth/internal/evidence"
	"github.com/osintlab/sleuth/internal/llm"
)

type fakeEmbedder struct {
	err   error
	texts []string
}

func (f *fakeEmbedder) Complete(context.Context, []llm.Message, llm.Options) (string, error) {
	return "", errors.New("not a chat model")
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.texts = append(f.texts, texts...)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func newTestIngestor(t *testing.T, embedder llm.Provider) (*Ingestor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewIngestor(&evidence.Store{DB: db}, embedder, 1000, 200, 0), mock
}

func TestIngestText(t *testing.T) {
	embedder := &fakeEmbedder{}
	ing, mock := newTestIngestor(t, embedder)

	mock.ExpectExec("INSERT INTO evidence_chunks").WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := ing.IngestText(context.Background(), "notes.txt", "A short document. One chunk only.", map[string]string{"case": "42"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("stored %d chunks, want 1", n)
	}
	if len(embedder.texts) != 1 {
		t.Errorf("embedded %d chunks, want 1", len(embedder.texts))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestIngestTextRejectsWrongDimension(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	// fakeEmbedder emits 2-dimensional vectors; configure a mismatch
	ing := NewIngestor(&evidence.Store{DB: db}, &fakeEmbedder{}, 1000, 200, 3)

	_, err = ing.IngestText(context.Background(), "notes.txt", "A short document.", nil)
	if err == nil {
		t.Fatal("expected a dimension mismatch error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestIngestTextValidation(t *testing.T) {
	ing, _ := newTestIngestor(t, &fakeEmbedder{})

	if _, err := ing.IngestText(context.Background(), "", "text", nil); err == nil {
		t.Error("missing name must be rejected")
	}
	if _, err := ing.IngestText(context.Background(), "doc", "   ", nil); err == nil {
		t.Error("empty text must be rejected")
	}
}

func TestIngestTextEmbedderFailure(t *testing.T) {
	ing, _ := newTestIngestor(t, &fakeEmbedder{err: errors.New("quota exceeded")})

	if _, err := ing.IngestText(context.Background(), "doc", "Some content here.", nil); err == nil {
		t.Error("embedding failure must surface")
	}
}

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Investigation Notes</title></head>
<body>
<article>
<h1>Investigation Notes</h1>
<p>The subject travelled to three countries in the last quarter. Customs
records show repeated crossings at the same checkpoint, always at night.
Financial statements list no matching travel expenses for the period.</p>
<p>Associates interviewed by local reporters described a pattern of short
visits timed around cargo arrivals at the northern port facility.</p>
</article>
</body>
</html>`

func TestIngestURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	ing, mock := newTestIngestor(t, &fakeEmbedder{})
	mock.ExpectExec("INSERT INTO evidence_chunks").WillReturnResult(sqlmock.NewResult(0, 1))

	name, n, err := ing.IngestURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if name != "Investigation Notes" {
		t.Errorf("document name = %q", name)
	}
	if n < 1 {
		t.Errorf("stored %d chunks", n)
	}
}

func TestIngestURLRejectsBadInput(t *testing.T) {
	ing, _ := newTestIngestor(t, &fakeEmbedder{})

	if _, _, err := ing.IngestURL(context.Background(), "not a url"); err == nil {
		t.Error("invalid url must be rejected")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()
	if _, _, err := ing.IngestURL(context.Background(), srv.URL); err == nil {
		t.Error("non-200 response must be rejected")
	}
}
