package fetcher

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

func TestParsePublishedAt(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2026-01-05T10:30:00.000Z", time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC)},
		{"2026-01-05T10:30:00Z", time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC)},
		{"2026-01-05T10:30:00-05:00", time.Date(2026, 1, 5, 15, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParsePublishedAt(tc.in)
		if err != nil {
			t.Errorf("ParsePublishedAt(%q) error: %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("ParsePublishedAt(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "yesterday", "01/05/2026"} {
		if _, err := ParsePublishedAt(bad); err == nil {
			t.Errorf("ParsePublishedAt(%q) expected error", bad)
		}
	}
}

func doc(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return d.Selection
}

func TestExtractBody(t *testing.T) {
	html := `<html><body>
		<div class="caas-body">
			<p>First paragraph.</p>
			<p>  </p>
			<p>Second paragraph.</p>
		</div>
	</body></html>`

	got := extractBody(doc(t, html))
	want := "First paragraph.\nSecond paragraph."
	if got != want {
		t.Errorf("extractBody = %q, want %q", got, want)
	}
}

func TestExtractBodyFallbackContainer(t *testing.T) {
	html := `<html><body>
		<div class="body yf-1ir6o1g">
			<p>Only the new layout here.</p>
		</div>
	</body></html>`

	if got := extractBody(doc(t, html)); got != "Only the new layout here." {
		t.Errorf("extractBody = %q", got)
	}

	if got := extractBody(doc(t, "<html><body><p>stray</p></body></html>")); got != "" {
		t.Errorf("expected empty body without a known container, got %q", got)
	}
}

func TestExtractPublishedAt(t *testing.T) {
	html := `<html><body>
		<time class="byline-attr-meta-time" datetime="2026-01-05T10:30:00.000Z">Jan 5</time>
	</body></html>`
	if got := extractPublishedAt(doc(t, html)); got != "2026-01-05T10:30:00.000Z" {
		t.Errorf("extractPublishedAt = %q", got)
	}

	legacy := `<html><body>
		<div class="caas-attr-time-style"><time datetime="2026-01-05T10:30:00Z">Jan 5</time></div>
	</body></html>`
	if got := extractPublishedAt(doc(t, legacy)); got != "2026-01-05T10:30:00Z" {
		t.Errorf("extractPublishedAt legacy = %q", got)
	}

	if got := extractPublishedAt(doc(t, "<html><body></body></html>")); got != "" {
		t.Errorf("expected empty publish time, got %q", got)
	}
}
