// Package lnurltest runs an LNURL-pay service for tests.
package lnurltest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ellemouton/sendpay/lnurl"
	"github.com/stretchr/testify/require"
)

// Service is a running LNURL-pay service.
type Service struct {
	*httptest.Server

	LNURL *lnurl.Server
}

// Start runs an lnurl.Server over TLS. cfg.BaseURL is filled in with the
// address of the test server. The server is closed when the test ends.
func Start(t *testing.T, cfg lnurl.Config,
	invoices lnurl.InvoiceCreator) *Service {

	t.Helper()

	svc := &Service{}
	svc.Server = httptest.NewTLSServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			svc.LNURL.ServeHTTP(w, r)
		},
	))
	t.Cleanup(svc.Close)

	cfg.BaseURL = svc.URL

	var err error
	svc.LNURL, err = lnurl.NewServer(&cfg, invoices)
	require.NoError(t, err)

	return svc
}

// Host returns the host:port the service listens on.
func (s *Service) Host() string {
	return s.Listener.Addr().String()
}
