package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// searchServer は first パラメータごとに固定のページを返す
type searchServer struct {
	mu       sync.Mutex
	pages    map[string][]string // first -> hrefs
	status   map[string]int      // first -> status
	requests []*http.Request
}

func (s *searchServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Clone(context.Background()))
	s.mu.Unlock()

	first := r.URL.Query().Get("first")
	if code, ok := s.status[first]; ok {
		w.WriteHeader(code)
		return
	}
	var sb strings.Builder
	sb.WriteString("<html><body><div class=\"news\">")
	for i, href := range s.pages[first] {
		fmt.Fprintf(&sb, `<div class="card"><a class="title" href="%s">Story %s-%d</a><a class="source" href="/src">src</a></div>`, href, first, i)
	}
	sb.WriteString("</div></body></html>")
	_, _ = w.Write([]byte(sb.String()))
}

func (s *searchServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func newTestPaginator(srv *httptest.Server) *Paginator {
	return &Paginator{
		Backend:  HTMLBackend{Endpoint: srv.URL + "/news/search"},
		Client:   srv.Client(),
		Identity: FixedIdentity("test-agent"),
		Delay:    NoDelay{},
		PageSize: 10,
		Timeout:  2 * time.Second,
	}
}

func urls(hits []SearchHit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.URL)
	}
	return out
}

func TestPaginatorSearch_DeduplicatesAcrossPagesAndStopsOnEmptyPage(t *testing.T) {
	ss := &searchServer{pages: map[string][]string{
		"0":  {"https://a.example/1", "https://a.example/2"},
		"10": {"https://a.example/2", "https://a.example/3"},
		"20": {},
		"30": {"https://a.example/4"},
	}}
	srv := httptest.NewServer(ss)
	defer srv.Close()

	hits := newTestPaginator(srv).Search(context.Background(), "OMG India", 5, DelayRange{})

	assert.Equal(t, []string{"https://a.example/1", "https://a.example/2", "https://a.example/3"}, urls(hits))
	assert.Equal(t, 3, ss.count(), "pagination stops at the first empty page")
}

func TestPaginatorSearch_StopsOnFailureAndKeepsPartialResults(t *testing.T) {
	ss := &searchServer{
		pages:  map[string][]string{"0": {"https://a.example/1"}, "20": {"https://a.example/9"}},
		status: map[string]int{"10": http.StatusInternalServerError},
	}
	srv := httptest.NewServer(ss)
	defer srv.Close()

	hits := newTestPaginator(srv).Search(context.Background(), "q", 5, DelayRange{})

	assert.Equal(t, []string{"https://a.example/1"}, urls(hits))
	assert.Equal(t, 2, ss.count())
}

func TestPaginatorSearch_RespectsMaxPages(t *testing.T) {
	pages := map[string][]string{}
	for p := 0; p < 10; p++ {
		first := fmt.Sprint(p * 10)
		pages[first] = []string{fmt.Sprintf("https://a.example/%d", p)}
	}
	ss := &searchServer{pages: pages}
	srv := httptest.NewServer(ss)
	defer srv.Close()

	hits := newTestPaginator(srv).Search(context.Background(), "q", 2, DelayRange{})

	assert.Len(t, hits, 2)
	assert.Equal(t, 2, ss.count())
}

func TestPaginatorSearch_RequestShape(t *testing.T) {
	ss := &searchServer{pages: map[string][]string{"0": {"/relative/story"}, "10": {}}}
	srv := httptest.NewServer(ss)
	defer srv.Close()

	hits := newTestPaginator(srv).Search(context.Background(), "Omnicom Media Group", 3, DelayRange{})

	require.Len(t, hits, 1)
	assert.Equal(t, srv.URL+"/relative/story", hits[0].URL, "relative hrefs are resolved against the page")
	assert.Equal(t, "Story 0-0", hits[0].Title)

	require.Equal(t, 2, ss.count())
	first := ss.requests[0]
	assert.Equal(t, "Omnicom Media Group", first.URL.Query().Get("q"))
	assert.Equal(t, "0", first.URL.Query().Get("first"))
	assert.Equal(t, "10", ss.requests[1].URL.Query().Get("first"))
	assert.Equal(t, "test-agent", first.Header.Get("User-Agent"))
}

type countingDelay struct{ calls int }

func (d *countingDelay) Wait(context.Context, DelayRange) { d.calls++ }

func TestPaginatorSearch_WaitsBetweenPagesOnly(t *testing.T) {
	ss := &searchServer{pages: map[string][]string{
		"0":  {"https://a.example/1"},
		"10": {"https://a.example/2"},
		"20": {"https://a.example/3"},
	}}
	srv := httptest.NewServer(ss)
	defer srv.Close()

	p := newTestPaginator(srv)
	delay := &countingDelay{}
	p.Delay = delay

	hits := p.Search(context.Background(), "q", 3, DelayRange{Min: time.Second, Max: 2 * time.Second})

	assert.Len(t, hits, 3)
	assert.Equal(t, 2, delay.calls)
}

func TestPaginatorSearch_CancelledContext(t *testing.T) {
	ss := &searchServer{pages: map[string][]string{"0": {"https://a.example/1"}}}
	srv := httptest.NewServer(ss)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hits := newTestPaginator(srv).Search(ctx, "q", 5, DelayRange{})

	assert.Empty(t, hits)
	assert.Equal(t, 0, ss.count())
}

func TestRSSBackend(t *testing.T) {
	const feed = `<?xml version="1.0" encoding="utf-8"?>
<rss version="2.0"><channel><title>News</title>
<item><title>OMG India wins award</title><link>https://www.bing.com/news/apiclick.aspx?url=https%3a%2f%2fnews.example%2fstory-1&amp;c=1</link></item>
<item><title>Plain link</title><link>https://news.example/story-2</link></item>
</channel></rss>`

	var gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFormat = r.URL.Query().Get("format")
		if r.URL.Query().Get("first") != "0" {
			_, _ = w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>News</title></channel></rss>`))
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	p := newTestPaginator(srv)
	p.Backend = RSSBackend{Endpoint: srv.URL + "/news/search"}

	hits := p.Search(context.Background(), "OMG India", 3, DelayRange{})

	assert.Equal(t, "rss", gotFormat)
	assert.Equal(t, []string{"https://news.example/story-1", "https://news.example/story-2"}, urls(hits))
	assert.Equal(t, "OMG India wins award", hits[0].Title)
}

func TestNewPaginator_BackendSelection(t *testing.T) {
	cfg := DefaultConfig().Search
	assert.IsType(t, HTMLBackend{}, NewPaginator(cfg, nil).Backend)

	cfg.Backend = BackendRSS
	p := NewPaginator(cfg, nil)
	assert.IsType(t, RSSBackend{}, p.Backend)
	assert.Equal(t, 10, p.PageSize)
	assert.NotNil(t, p.Client)
}
