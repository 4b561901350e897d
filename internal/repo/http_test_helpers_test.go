package repo

import (
	"bytes"
	"io"
	"net/http"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// newTestProber returns a prober for blog.example.com whose requests go to rt, with a
// millisecond retry delay.
func newTestProber(rt roundTripFunc) *SiteProber {
	prober := NewSiteProber("https://blog.example.com/", "/wp-cron.php", time.Second, 3, nil)
	prober.retryDelay = time.Millisecond
	prober.httpClient = &http.Client{Transport: rt}
	return prober
}

func response(code int, header http.Header) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(bytes.NewReader(nil)),
		Header:     header,
	}
}

// statusSequence answers with the given status codes in order, repeating the last one,
// and counts the requests it served.
func statusSequence(codes ...int) (roundTripFunc, *int) {
	hits := 0
	return func(*http.Request) (*http.Response, error) {
		code := codes[len(codes)-1]
		if hits < len(codes) {
			code = codes[hits]
		}
		hits++
		return response(code, nil), nil
	}, &hits
}
