package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/report.pdf", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()

	if httpRequestsTotal == nil || authRejectionsTotal == nil ||
		contentProbeTotal == nil || crawlDispatchTotal == nil || crawlBytesTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObservers(t *testing.T) {
	Init()

	beforeAuth := testutil.ToFloat64(authRejectionsTotal.WithLabelValues("forbidden"))
	ObserveAuthRejection("forbidden")
	if got := testutil.ToFloat64(authRejectionsTotal.WithLabelValues("forbidden")); got != beforeAuth+1 {
		t.Errorf("expected auth rejections to increase by 1, got %f -> %f", beforeAuth, got)
	}

	beforeProbe := testutil.ToFloat64(contentProbeTotal.WithLabelValues("suffix"))
	ObserveProbe("suffix")
	if got := testutil.ToFloat64(contentProbeTotal.WithLabelValues("suffix")); got != beforeProbe+1 {
		t.Errorf("expected probe counter to increase by 1, got %f -> %f", beforeProbe, got)
	}

	beforeDispatch := testutil.ToFloat64(crawlDispatchTotal.WithLabelValues("document", "error"))
	ObserveDispatch("document", "error", 10*time.Millisecond)
	if got := testutil.ToFloat64(crawlDispatchTotal.WithLabelValues("document", "error")); got != beforeDispatch+1 {
		t.Errorf("expected dispatch counter to increase by 1, got %f -> %f", beforeDispatch, got)
	}

	beforeBytes := testutil.ToFloat64(crawlBytesTotal.WithLabelValues("bytes.example"))
	ObserveContentBytes("https://bytes.example/a", 0)
	ObserveContentBytes("https://bytes.example/a", 128)
	if got := testutil.ToFloat64(crawlBytesTotal.WithLabelValues("bytes.example")); got != beforeBytes+128 {
		t.Errorf("expected bytes counter to increase by 128, got %f -> %f", beforeBytes, got)
	}
}

func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com/doc.pdf", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
