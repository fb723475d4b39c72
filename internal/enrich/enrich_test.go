package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_MailtoWins(t *testing.T) {
	html := `<p>Write to sales@example.com or <a href="mailto:Info@Acme.example">email us</a></p>`
	c := Extract(html)
	assert.Equal(t, "info@acme.example", c.Email)
}

func TestExtract_FreeTextEmail(t *testing.T) {
	c := Extract(`<body>Contact: Support@Example.org for help</body>`)
	assert.Equal(t, "support@example.org", c.Email)
}

func TestExtract_SkipsAssetEmails(t *testing.T) {
	html := `<img srcset="hero@2x.png"> reach us at hello@acme.example`
	c := Extract(html)
	assert.Equal(t, "hello@acme.example", c.Email)
}

func TestExtract_TelLinkWins(t *testing.T) {
	html := `<a href="tel:+1-555-123-4567">call</a> or 999 8888`
	c := Extract(html)
	assert.Equal(t, "+1-555-123-4567", c.Phone)
}

func TestExtract_FreeTextPhone(t *testing.T) {
	c := Extract(`<footer>Call us: (555) 123-4567</footer>`)
	assert.Equal(t, "(555) 123-4567", c.Phone)
}

func TestExtract_RejectsShortNumbers(t *testing.T) {
	c := Extract(`<p>Suite 12345</p>`)
	assert.Empty(t, c.Phone)
}

func TestExtract_Empty(t *testing.T) {
	c := Extract(`<html><body>nothing here</body></html>`)
	assert.Empty(t, c.Email)
	assert.Empty(t, c.Phone)
}

func TestHTTPEnricher_FetchAndExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><a href="mailto:owner@shop.example">mail</a> <a href="tel:+15551234567">call</a></html>`))
	}))
	defer srv.Close()

	e := NewHTTPEnricher()
	c := e.Enrich(context.Background(), srv.URL)
	assert.Equal(t, "owner@shop.example", c.Email)
	assert.Equal(t, "+15551234567", c.Phone)
}

func TestHTTPEnricher_NeverErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewHTTPEnricher()
	assert.Equal(t, Contact{}, e.Enrich(context.Background(), srv.URL))
	assert.Equal(t, Contact{}, e.Enrich(context.Background(), ""))
	assert.Equal(t, Contact{}, e.Enrich(context.Background(), "http://127.0.0.1:1/unreachable"))
}

func TestHTTPEnricher_CachesByURL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`contact: info@cache.example`))
	}))
	defer srv.Close()

	e := NewHTTPEnricher()
	first := e.Enrich(context.Background(), srv.URL)
	second := e.Enrich(context.Background(), srv.URL)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())
}
