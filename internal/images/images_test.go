package images

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<meta property="og:image" content="https://cdn.exemplu.ro/foto/principala.jpg">
<meta name="twitter:image" content="/foto/twitter.jpg">
<link rel="image_src" href="https://cdn.exemplu.ro/foto/link.jpg">
</head>
<body>
<img src="https://cdn.exemplu.ro/logo.png">
<img src="/foto/inline.jpg">
<img src="https://cdn.exemplu.ro/foto/principala.jpg#top">
</body>
</html>`

func TestCandidatesFromHTML(t *testing.T) {
	candidates := CandidatesFromHTML(samplePage, "https://exemplu.ro/articol")
	want := []string{
		"https://cdn.exemplu.ro/foto/principala.jpg",
		"https://exemplu.ro/foto/twitter.jpg",
		"https://cdn.exemplu.ro/foto/link.jpg",
		"https://cdn.exemplu.ro/logo.png",
		"https://exemplu.ro/foto/inline.jpg",
	}
	if len(candidates) != len(want) {
		t.Fatalf("expected %d candidates, got %v", len(want), candidates)
	}
	for i, url := range want {
		if candidates[i] != url {
			t.Errorf("candidate %d = %q, want %q", i, candidates[i], url)
		}
	}
}

func TestCandidatesFromHTMLRelativeWithoutBase(t *testing.T) {
	candidates := CandidatesFromHTML(`<img src="/relativa.jpg">`, "")
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates without base URL, got %v", candidates)
	}
}

func TestFetchPrefersFeedCandidate(t *testing.T) {
	payload := strings.Repeat("x", 15000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/buna.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			fmt.Fprint(w, payload)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(Options{ScrapeEnabled: false})
	img, err := fetcher.Fetch(context.Background(), "https://exemplu.ro/articol", []string{server.URL + "/buna.jpg"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if img.ContentType != "image/jpeg" {
		t.Errorf("unexpected content type %q", img.ContentType)
	}
	if img.Filename != "featured.jpg" {
		t.Errorf("unexpected filename %q", img.Filename)
	}
	if len(img.Data) != len(payload) {
		t.Errorf("expected %d bytes, got %d", len(payload), len(img.Data))
	}
}

func TestFetchSkipsSmallAndDecorative(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/mica.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			fmt.Fprint(w, "tiny")
		case "/mare.png":
			w.Header().Set("Content-Type", "image/png")
			fmt.Fprint(w, strings.Repeat("y", 20000))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(Options{ScrapeEnabled: false})
	img, err := fetcher.Fetch(context.Background(), "https://exemplu.ro/articol", []string{
		server.URL + "/logo-site.jpg", // filtered before download
		server.URL + "/mica.jpg",      // below the byte floor
		server.URL + "/mare.png",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if img.Filename != "featured.png" {
		t.Errorf("expected png fallback to win, got %q", img.Filename)
	}
}

func TestFetchScrapesSourcePage(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/articol":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><head><meta property="og:image" content="%s/og.jpg"></head></html>`, server.URL)
		case "/og.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			fmt.Fprint(w, strings.Repeat("z", 20000))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(Options{ScrapeEnabled: true})
	img, err := fetcher.Fetch(context.Background(), server.URL+"/articol", nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.HasSuffix(img.SourceURL, "/og.jpg") {
		t.Errorf("expected scraped og:image, got %q", img.SourceURL)
	}
}

func TestFetchNoCandidates(t *testing.T) {
	fetcher := NewFetcher(Options{ScrapeEnabled: false})
	if _, err := fetcher.Fetch(context.Background(), "https://exemplu.ro/articol", nil); err != ErrNoCandidates {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestFetchRejectsNonImageContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, strings.Repeat("a", 20000))
	}))
	defer server.Close()

	fetcher := NewFetcher(Options{ScrapeEnabled: false})
	if _, err := fetcher.Fetch(context.Background(), "https://exemplu.ro/articol", []string{server.URL + "/fals.jpg"}); err == nil {
		t.Fatal("expected error for non-image response")
	}
}
