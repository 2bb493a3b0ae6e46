package wordpress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"

	"autopress/internal/core"
)

func TestBuildStablePostSlugIsDeterministic(t *testing.T) {
	first := BuildStablePostSlug("Guvernul anunta noi masuri fiscale", "https://example.com/articol?utm_source=rss")
	second := BuildStablePostSlug("Guvernul anunta noi masuri fiscale", "https://example.com/articol")
	if first != second {
		t.Fatalf("expected tracking params to not change slug: %q vs %q", first, second)
	}
	if !strings.Contains(first, "guvernul-anunta") {
		t.Errorf("expected readable title fragment, got %q", first)
	}
	parts := strings.SplitN(first, "-", 2)
	if len(parts[0]) != 12 {
		t.Errorf("expected 12-char hash prefix, got %q", parts[0])
	}
}

func TestBuildStablePostSlugDistinctSources(t *testing.T) {
	a := BuildStablePostSlug("Titlu identic", "https://example.com/a")
	b := BuildStablePostSlug("Titlu identic", "https://example.com/b")
	if a == b {
		t.Fatalf("expected distinct slugs for distinct sources, both %q", a)
	}
}

func TestBuildStablePostSlugFallsBackToTitle(t *testing.T) {
	a := BuildStablePostSlug("Titlu fara sursa", "")
	b := BuildStablePostSlug("Titlu fara sursa", "")
	if a != b {
		t.Fatalf("expected stable slug without source URL, got %q and %q", a, b)
	}
	if a == "" {
		t.Fatal("expected non-empty slug")
	}
}

func TestCandidateSlugs(t *testing.T) {
	slugs := CandidateSlugs("Guvernul anunta noi masuri fiscale pentru anul viitor", "https://example.com/a")
	if len(slugs) != 2 {
		t.Fatalf("expected stable plus plain slug, got %v", slugs)
	}
	if slugs[0] == slugs[1] {
		t.Errorf("expected distinct candidates, got %v", slugs)
	}
	if !strings.HasPrefix(slugs[1], "guvernul-anunta") {
		t.Errorf("unexpected plain slug %q", slugs[1])
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate_limited", &StatusError{StatusCode: 429}, true},
		{"server_error", &StatusError{StatusCode: 502}, true},
		{"bad_request", &StatusError{StatusCode: 400}, false},
		{"unauthorized", &StatusError{StatusCode: 401}, false},
		{"conn_reset", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, true},
		{"wrapped_reset", fmt.Errorf("publish: %w", syscall.ECONNRESET), true},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableError(tt.err); got != tt.want {
				t.Errorf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestHost(t *testing.T) {
	client := NewClient("https://www.Exemplu.ro/", "user", "pass")
	if got := client.Host(); got != "exemplu.ro" {
		t.Errorf("Host() = %q, want %q", got, "exemplu.ro")
	}
}

func TestFindBySlug(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/posts" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("slug"); got != "abc123-titlu" {
			t.Errorf("unexpected slug query %q", got)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "editor" || pass != "secret" {
			t.Errorf("missing basic auth, got %q/%q", user, pass)
		}
		fmt.Fprint(w, `[{"id":42,"link":"https://exemplu.ro/abc123-titlu","slug":"abc123-titlu","title":{"rendered":"Titlul postat"}}]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "editor", "secret")
	item, err := client.FindBySlug(context.Background(), "abc123-titlu")
	if err != nil {
		t.Fatalf("FindBySlug: %v", err)
	}
	if item == nil || item.ID != 42 || item.Title != "Titlul postat" {
		t.Fatalf("unexpected item %+v", item)
	}
}

func TestFindBySlugNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "editor", "secret")
	item, err := client.FindBySlug(context.Background(), "missing")
	if err != nil {
		t.Fatalf("FindBySlug: %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil item, got %+v", item)
	}
}

func TestListRecentScopesCategory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if got := query.Get("categories"); got != "4058" {
			t.Errorf("unexpected categories %q", got)
		}
		if got := query.Get("per_page"); got != "5" {
			t.Errorf("unexpected per_page %q", got)
		}
		fmt.Fprint(w, `[{"id":1,"link":"https://exemplu.ro/unu","title":{"rendered":"Unu"}},{"id":2,"link":"https://exemplu.ro/doi","title":{"rendered":"Doi"}}]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "editor", "secret")
	items, err := client.ListRecent(context.Background(), 4058, 5)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(items) != 2 || items[1].Title != "Doi" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestCreatePostTwoStep(t *testing.T) {
	var calls []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/wp-json/wp/v2/posts":
			fmt.Fprint(w, `{"id":77,"status":"draft"}`)
		case "/wp-json/wp/v2/posts/77":
			fmt.Fprint(w, `{"id":77,"status":"publish","featured_media":9}`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "editor", "secret")
	article := &core.Article{
		Title:           "Guvernul anunta noi masuri fiscale",
		ContentHTML:     "<p>Detalii.</p>",
		MetaDescription: "Descriere scurta.",
	}
	id, err := client.CreatePost(context.Background(), article, 4064, 9, CreateOptions{Slug: "abc-slug", TwoStep: true})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if id != 77 {
		t.Errorf("expected post id 77, got %d", id)
	}
	want := []string{
		"POST /wp-json/wp/v2/posts",
		"POST /wp-json/wp/v2/posts/77",
		"GET /wp-json/wp/v2/posts/77",
	}
	if len(calls) != len(want) {
		t.Fatalf("expected create, promote and read-back, got %v", calls)
	}
	for i, call := range want {
		if calls[i] != call {
			t.Errorf("call %d = %q, want %q", i, calls[i], call)
		}
	}
}

func TestCreatePostRestoresDroppedFeaturedMedia(t *testing.T) {
	var patches []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/wp-json/wp/v2/posts":
			fmt.Fprint(w, `{"id":91,"status":"publish","featured_media":0}`)
		case r.URL.Path == "/wp-json/wp/v2/posts/91" && r.Method == http.MethodGet:
			fmt.Fprint(w, `{"id":91,"status":"publish","featured_media":0}`)
		case r.URL.Path == "/wp-json/wp/v2/posts/91" && r.Method == http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			patches = append(patches, string(body))
			fmt.Fprint(w, `{"id":91,"status":"publish","featured_media":12}`)
		default:
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "editor", "secret")
	article := &core.Article{Title: "Titlu", ContentHTML: "<p>Corp.</p>"}
	if _, err := client.CreatePost(context.Background(), article, 0, 12, CreateOptions{}); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if len(patches) != 1 {
		t.Fatalf("expected one featured media patch, got %v", patches)
	}
	if !strings.Contains(patches[0], `"featured_media":12`) {
		t.Errorf("patch did not restore the media id: %s", patches[0])
	}
}

func TestCreatePostSkipsReconcileWhenMediaKept(t *testing.T) {
	var posts91 int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/wp-json/wp/v2/posts":
			fmt.Fprint(w, `{"id":91,"status":"publish","featured_media":12}`)
		case r.URL.Path == "/wp-json/wp/v2/posts/91" && r.Method == http.MethodGet:
			fmt.Fprint(w, `{"id":91,"status":"publish","featured_media":12}`)
		case r.URL.Path == "/wp-json/wp/v2/posts/91" && r.Method == http.MethodPost:
			posts91++
			fmt.Fprint(w, `{"id":91}`)
		default:
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "editor", "secret")
	article := &core.Article{Title: "Titlu", ContentHTML: "<p>Corp.</p>"}
	if _, err := client.CreatePost(context.Background(), article, 0, 12, CreateOptions{}); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if posts91 != 0 {
		t.Errorf("expected no patch when the store kept the media, got %d", posts91)
	}
}

func TestCreatePostSurfacesStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"message":"maintenance"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "editor", "secret")
	_, err := client.CreatePost(context.Background(), &core.Article{Title: "T", ContentHTML: "<p>x</p>"}, 0, 0, CreateOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 503 {
		t.Fatalf("expected 503 StatusError, got %v", err)
	}
	if !IsRetryableError(err) {
		t.Error("expected 503 to be retryable")
	}
}

func TestCountPublishedToday(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("after"); got == "" {
			t.Error("expected after query param")
		}
		w.Header().Set("X-WP-Total", "6")
		fmt.Fprint(w, `[{"id":1}]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "editor", "secret")
	count, err := client.CountPublishedToday(context.Background(), 4058, nil)
	if err != nil {
		t.Fatalf("CountPublishedToday: %v", err)
	}
	if count != 6 {
		t.Errorf("expected count 6, got %d", count)
	}
}

func TestUploadMedia(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wp-json/wp/v2/media":
			if got := r.Header.Get("Content-Type"); got != "image/jpeg" {
				t.Errorf("unexpected content type %q", got)
			}
			if got := r.Header.Get("Content-Disposition"); !strings.Contains(got, "poza.jpg") {
				t.Errorf("unexpected disposition %q", got)
			}
			fmt.Fprint(w, `{"id":301}`)
		case "/wp-json/wp/v2/media/301":
			fmt.Fprint(w, `{"id":301}`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "editor", "secret")
	id, err := client.UploadMedia(context.Background(), []byte("jpegbytes"), "image/jpeg", MediaMeta{
		Filename: "poza.jpg",
		AltText:  "Descriere imagine",
	})
	if err != nil {
		t.Fatalf("UploadMedia: %v", err)
	}
	if id != 301 {
		t.Errorf("expected media id 301, got %d", id)
	}
}
