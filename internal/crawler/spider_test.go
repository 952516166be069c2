package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/webcrawl/internal/model"
)

// testSpider builds a spider pointed at a test server with fast settings.
func testSpider(server *httptest.Server, opts ...Option) *Spider {
	base := []Option{
		WithDelay(0),
		WithRetryBaseDelay(time.Millisecond),
	}
	return NewSpider(server.Client(), append(base, opts...)...)
}

// TestSpiderCrawl tests whole-session behavior against a fake site.
func TestSpiderCrawl(t *testing.T) {
	t.Parallel()

	t.Run("traverses breadth-first from the seed", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><a href="/a">A</a> <a href="/b">B</a></body></html>`)
		})
		mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><a href="/c">C</a></body></html>`)
		})
		mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body>leaf</body></html>`)
		})
		mux.HandleFunc("/c", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body>leaf</body></html>`)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		spider := testSpider(server, WithMaxDepth(3), WithMaxPages(10))
		report, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		want := []string{
			server.URL + "/",
			server.URL + "/a",
			server.URL + "/b",
			server.URL + "/c",
		}
		if len(report.Pages) != len(want) {
			t.Fatalf("expected %d pages, got %d", len(want), len(report.Pages))
		}
		for i, page := range report.Pages {
			if page.URL != want[i] {
				t.Errorf("page %d = %s, want %s", i, page.URL, want[i])
			}
		}

		// Depth follows link distance, parent follows discovery.
		if report.Pages[0].Depth != 0 || report.Pages[3].Depth != 2 {
			t.Errorf("unexpected depths: seed=%d c=%d", report.Pages[0].Depth, report.Pages[3].Depth)
		}
		if report.Pages[3].ParentURL != server.URL+"/a" {
			t.Errorf("page c parent = %s, want %s", report.Pages[3].ParentURL, server.URL+"/a")
		}
	})

	t.Run("stops at max pages", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			// Every page links to the next, endlessly.
			fmt.Fprintf(w, `<html><body><a href="%snext/">next</a></body></html>`, r.URL.Path)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		spider := testSpider(server, WithMaxDepth(100), WithMaxPages(5))
		report, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if len(report.Pages) != 5 {
			t.Errorf("expected exactly 5 pages, got %d", len(report.Pages))
		}
	})

	t.Run("stops at max depth", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><body><a href="%snext/">deeper</a></body></html>`, r.URL.Path)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		spider := testSpider(server, WithMaxDepth(2), WithMaxPages(100))
		report, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		// Depths 0, 1, 2 give three pages.
		if len(report.Pages) != 3 {
			t.Errorf("expected 3 pages within depth 2, got %d", len(report.Pages))
		}
		for _, page := range report.Pages {
			if page.Depth > 2 {
				t.Errorf("page %s beyond depth limit: %d", page.URL, page.Depth)
			}
		}
	})

	t.Run("403 skips with the fixed reason when skip mode is on", func(t *testing.T) {
		t.Parallel()

		var forbiddenHits atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><a href="/members">members</a></body></html>`)
		})
		mux.HandleFunc("/members", func(w http.ResponseWriter, r *http.Request) {
			forbiddenHits.Add(1)
			w.WriteHeader(http.StatusForbidden)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		spider := testSpider(server, WithSkipUnauthorized(true))
		report, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if len(report.Skips) != 1 {
			t.Fatalf("expected 1 skip, got %d", len(report.Skips))
		}
		skip := report.Skips[0]
		if skip.Reason != "Forbidden – Access denied" {
			t.Errorf("unexpected skip reason: %q", skip.Reason)
		}
		if skip.StatusCode != http.StatusForbidden {
			t.Errorf("expected status 403 in record, got %d", skip.StatusCode)
		}
		if skip.ParentURL != server.URL+"/" {
			t.Errorf("expected parent %s, got %s", server.URL+"/", skip.ParentURL)
		}
		if hits := forbiddenHits.Load(); hits != 1 {
			t.Errorf("skipped URL should be fetched once, got %d fetches", hits)
		}
		if len(report.Failures) != 0 {
			t.Errorf("expected no failures, got %d", len(report.Failures))
		}
	})

	t.Run("500 retries up to the budget then fails", func(t *testing.T) {
		t.Parallel()

		var brokenHits atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><a href="/broken">broken</a></body></html>`)
		})
		mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
			brokenHits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		spider := testSpider(server, WithMaxRetries(3))
		report, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		// Initial attempt plus 3 retries.
		if hits := brokenHits.Load(); hits != 4 {
			t.Errorf("expected 4 fetch attempts, got %d", hits)
		}
		if len(report.Failures) != 1 {
			t.Fatalf("expected 1 failure, got %d", len(report.Failures))
		}
		if report.Failures[0].URL != server.URL+"/broken" {
			t.Errorf("unexpected failed URL: %s", report.Failures[0].URL)
		}
		if len(report.Skips) != 0 {
			t.Errorf("expected no skips without skip mode, got %d", len(report.Skips))
		}
	})

	t.Run("robots disallow skips without fetching", func(t *testing.T) {
		t.Parallel()

		var privateHits atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
		})
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><a href="/private">private</a> <a href="/open">open</a></body></html>`)
		})
		mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
			privateHits.Add(1)
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body>secret</body></html>`)
		})
		mux.HandleFunc("/open", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body>public</body></html>`)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		spider := testSpider(server, WithRespectRobots(true))
		report, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if hits := privateHits.Load(); hits != 0 {
			t.Errorf("robots-blocked URL should never be fetched, got %d fetches", hits)
		}
		if len(report.Skips) != 1 || report.Skips[0].Reason != ReasonRobotsBlocked {
			t.Fatalf("expected one robots skip, got %+v", report.Skips)
		}
		if len(report.Pages) != 2 {
			t.Errorf("expected seed and /open crawled, got %d pages", len(report.Pages))
		}
	})

	t.Run("ignore restrictions overrides robots and skip classification", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
		})
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><a href="/gone">gone</a></body></html>`)
		})
		mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		spider := testSpider(server,
			WithRespectRobots(true),
			WithSkipUnauthorized(true),
			WithIgnoreRestrictions(true),
			WithMaxRetries(1),
		)
		report, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if len(report.Skips) != 0 {
			t.Errorf("ignore mode must produce no skips, got %+v", report.Skips)
		}
		if len(report.Pages) != 1 {
			t.Errorf("robots-disallowed seed should still be crawled, got %d pages", len(report.Pages))
		}
		if len(report.Failures) != 1 {
			t.Errorf("404 should fail after retries under ignore mode, got %d failures", len(report.Failures))
		}
	})

	t.Run("outcome lists are disjoint", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body>
				<a href="/ok">ok</a>
				<a href="/forbidden">forbidden</a>
				<a href="/broken">broken</a>
			</body></html>`)
		})
		mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body>fine</body></html>`)
		})
		mux.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		spider := testSpider(server, WithSkipUnauthorized(true), WithMaxRetries(1))
		report, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		seen := make(map[string]string)
		record := func(url, list string) {
			if prev, ok := seen[url]; ok {
				t.Errorf("URL %s appears in both %s and %s", url, prev, list)
			}
			seen[url] = list
		}
		for _, p := range report.Pages {
			record(p.URL, "pages")
		}
		for _, s := range report.Skips {
			record(s.URL, "skips")
		}
		for _, f := range report.Failures {
			record(f.URL, "failures")
		}

		if len(report.Pages) != 2 || len(report.Skips) != 1 || len(report.Failures) != 1 {
			t.Errorf("unexpected outcome split: pages=%d skips=%d failures=%d",
				len(report.Pages), len(report.Skips), len(report.Failures))
		}
	})

	t.Run("bounded concurrency crawls the same page set", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body>
				<a href="/p1">1</a> <a href="/p2">2</a> <a href="/p3">3</a>
			</body></html>`)
		})
		for i := 1; i <= 3; i++ {
			path := fmt.Sprintf("/p%d", i)
			mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				fmt.Fprint(w, `<html><body>leaf</body></html>`)
			})
		}
		server := httptest.NewServer(mux)
		defer server.Close()

		spider := testSpider(server, WithConcurrency(3))
		report, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if len(report.Pages) != 4 {
			t.Errorf("expected 4 pages, got %d", len(report.Pages))
		}
		// The seed is its own wave, so it completes first.
		if report.Pages[0].URL != server.URL+"/" {
			t.Errorf("seed should complete first, got %s", report.Pages[0].URL)
		}
	})

	t.Run("non-HTML internal target is recorded without extraction", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><a href="/data">data</a></body></html>`)
		})
		mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, "plain text payload")
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		spider := testSpider(server)
		report, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if len(report.Pages) != 2 {
			t.Fatalf("expected 2 pages, got %d", len(report.Pages))
		}
		data := report.Pages[1]
		if data.WordCount != 0 || len(data.Links) != 0 {
			t.Errorf("non-HTML page should have no extracted content: %+v", data)
		}
	})

	t.Run("cancellation stops the crawl and keeps partial results", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		var pages atomic.Int32

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if pages.Add(1) >= 2 {
				cancel()
			}
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><body><a href="%snext/">next</a></body></html>`, r.URL.Path)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		spider := testSpider(server, WithMaxDepth(100), WithMaxPages(100))
		report, err := spider.Crawl(ctx, server.URL)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if report == nil {
			t.Fatal("cancelled crawl should still return the partial report")
		}
		if len(report.Pages) == 0 {
			t.Error("partial report should contain completed pages")
		}
		if len(report.Pages) >= 100 {
			t.Error("cancellation should have stopped the crawl early")
		}
	})
}

// TestSpiderCrawlInvalidSeed tests the only fatal error path.
func TestSpiderCrawlInvalidSeed(t *testing.T) {
	t.Parallel()

	spider := NewSpider(http.DefaultClient, WithDelay(0))

	tests := []struct {
		name string
		seed string
	}{
		{"garbage scheme", "ftp://example.com/"},
		{"image URL", "https://example.com/photo.png"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			report, err := spider.Crawl(context.Background(), tt.seed)
			if !errors.Is(err, ErrInvalidSeed) {
				t.Errorf("expected ErrInvalidSeed, got %v", err)
			}
			if report != nil {
				t.Error("invalid seed should produce no report")
			}
		})
	}
}

// TestSpiderCrawlSchemelessSeed tests that bare hostnames get a scheme.
func TestSpiderCrawlSchemelessSeed(t *testing.T) {
	t.Parallel()

	if got := withScheme("example.com"); got != "https://example.com" {
		t.Errorf("withScheme(example.com) = %q", got)
	}
	if got := withScheme("http://example.com"); got != "http://example.com" {
		t.Errorf("withScheme should not touch URLs with a scheme, got %q", got)
	}
}

// TestSpiderConfigSnapshot tests that the report records the session mode.
func TestSpiderConfigSnapshot(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>hello</body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	spider := testSpider(server,
		WithMaxPages(7),
		WithMaxDepth(2),
		WithMaxRetries(5),
		WithSkipUnauthorized(true),
		WithUserAgent("snapshot-test/1.0"),
	)
	report, err := spider.Crawl(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	cfg := report.Config
	if cfg.MaxPages != 7 || cfg.MaxDepth != 2 || cfg.MaxRetries != 5 {
		t.Errorf("limits not recorded: %+v", cfg)
	}
	if !cfg.SkipUnauthorized || cfg.IgnoreRestrictions {
		t.Errorf("mode flags not recorded: %+v", cfg)
	}
	if cfg.UserAgent != "snapshot-test/1.0" {
		t.Errorf("user agent not recorded: %q", cfg.UserAgent)
	}
	if report.Summary == nil {
		t.Error("finished report should carry a summary")
	}
	if model.ContentClass("") == report.Pages[0].ContentClass {
		t.Error("crawled page should be classified")
	}
}
