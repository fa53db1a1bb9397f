package lnurl

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
)

const (
	payPath          = "/pay"
	invoicePath      = "/invoice"
	wellKnownPayPath = "/.well-known/lnurlp/"

	// metadataTTL is how long a callback id stays valid.
	metadataTTL = 10 * time.Minute
)

// InvoiceCreator adds invoices to a lightning node. lndclient's
// LightningClient satisfies it.
type InvoiceCreator interface {
	AddInvoice(ctx context.Context, in *invoicesrpc.AddInvoiceData) (
		lntypes.Hash, string, error)
}

// Config holds the terms the server advertises.
type Config struct {
	// BaseURL is the public URL the server is reachable on, eg.
	// https://pay.example.com.
	BaseURL string

	MinSendable lnwire.MilliSatoshi
	MaxSendable lnwire.MilliSatoshi

	// CommentAllowed is the longest comment accepted with a payment.
	CommentAllowed int

	// Description is the text/plain metadata entry.
	Description string

	// Clock defaults to the system clock.
	Clock clock.Clock
}

// Server is an LNURL-pay service. It serves a static LNURL at /pay and
// lightning addresses under /.well-known/lnurlp/.
type Server struct {
	cfg      *Config
	invoices InvoiceCreator
	mux      *http.ServeMux

	paymentMetadata map[string]*metadata
	metadataMu      sync.Mutex
}

type metadata struct {
	data      string
	createdAt time.Time
}

// A compile time check to ensure Server implements http.Handler.
var _ http.Handler = (*Server)(nil)

// NewServer returns a Server that creates its invoices with the given
// InvoiceCreator.
func NewServer(cfg *Config, invoices InvoiceCreator) (*Server, error) {
	if cfg.MinSendable < 1 || cfg.MinSendable > cfg.MaxSendable {
		return nil, fmt.Errorf("invalid sendable range [%v, %v]",
			cfg.MinSendable, cfg.MaxSendable)
	}

	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}

	s := &Server{
		cfg:             cfg,
		invoices:        invoices,
		mux:             http.NewServeMux(),
		paymentMetadata: make(map[string]*metadata),
	}

	s.mux.HandleFunc(payPath, s.pay)
	s.mux.HandleFunc(wellKnownPayPath, s.pay)
	s.mux.HandleFunc(invoicePath, s.invoice)

	return s, nil
}

// ServeHTTP routes a request to the pay or invoice handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// StaticLNURL returns the bech32 LNURL of the server's /pay endpoint.
func (s *Server) StaticLNURL() (string, error) {
	return EncodeURL(strings.TrimSuffix(s.cfg.BaseURL, "/") + payPath)
}

func (s *Server) pay(w http.ResponseWriter, r *http.Request) {
	var identifier string
	if strings.HasPrefix(r.URL.Path, wellKnownPayPath) {
		username := strings.TrimPrefix(r.URL.Path, wellKnownPayPath)
		if username == "" || strings.Contains(username, "/") {
			writeError(w, "unknown user")
			return
		}

		base, _ := url.Parse(s.cfg.BaseURL)
		identifier = fmt.Sprintf("%s@%s", strings.ToLower(username),
			base.Hostname())
	}

	callbackID, err := uuid.NewRandom()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	id := callbackID.String()

	meta := &metadata{
		data:      Metadata(s.cfg.Description, identifier),
		createdAt: s.cfg.Clock.Now(),
	}

	s.metadataMu.Lock()
	s.pruneMetadata()
	s.paymentMetadata[id] = meta
	s.metadataMu.Unlock()

	getInvoice := fmt.Sprintf(
		"%s%s?id=%s", strings.TrimSuffix(s.cfg.BaseURL, "/"),
		invoicePath, id,
	)

	writeJSON(w, http.StatusOK, &PayResponse{
		Callback:       getInvoice,
		MinSendable:    int64(s.cfg.MinSendable),
		MaxSendable:    int64(s.cfg.MaxSendable),
		Metadata:       meta.data,
		CommentAllowed: s.cfg.CommentAllowed,
		Tag:            TypePayRequest,
	})
}

// pruneMetadata drops callback ids older than metadataTTL. The caller must
// hold metadataMu.
func (s *Server) pruneMetadata() {
	now := s.cfg.Clock.Now()
	for id, meta := range s.paymentMetadata {
		if now.Sub(meta.createdAt) > metadataTTL {
			delete(s.paymentMetadata, id)
		}
	}
}

func (s *Server) invoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := r.Form.Get("id")
	if id == "" {
		writeError(w, "expected 'id' field")
		return
	}

	s.metadataMu.Lock()
	meta, ok := s.paymentMetadata[id]
	if ok {
		delete(s.paymentMetadata, id)
	}
	s.metadataMu.Unlock()

	if !ok || s.cfg.Clock.Now().Sub(meta.createdAt) > metadataTTL {
		writeError(w, "unknown or expired id")
		return
	}

	milliSats, err := strconv.ParseInt(r.Form.Get("amount"), 10, 64)
	if err != nil {
		writeError(w, "expected 'amount' field")
		return
	}

	amt := lnwire.MilliSatoshi(milliSats)
	if milliSats < 0 || amt < s.cfg.MinSendable ||
		amt > s.cfg.MaxSendable {

		writeError(w, fmt.Sprintf("amount must be between %d and %d "+
			"msat", s.cfg.MinSendable, s.cfg.MaxSendable))
		return
	}

	comment := r.Form.Get("comment")
	if len(comment) > s.cfg.CommentAllowed {
		writeError(w, fmt.Sprintf("comment is longer than %d "+
			"characters", s.cfg.CommentAllowed))
		return
	}

	memo := s.cfg.Description
	if comment != "" {
		memo = comment
	}

	h := sha256.Sum256([]byte(meta.data))
	ln := lntypes.Hash(h)

	_, pr, err := s.invoices.AddInvoice(ctx, &invoicesrpc.AddInvoiceData{
		Memo:            memo,
		Value:           amt,
		DescriptionHash: ln[:],
	})
	if err != nil {
		log.Errorf("Could not add invoice for %v: %v", amt, err)
		http.Error(w, "invoice error", http.StatusInternalServerError)
		return
	}

	log.Infof("Created invoice for %v", amt)

	writeJSON(w, http.StatusOK, &InvoiceResponse{
		PayRequest: pr,
		Routes:     []string{},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Could not write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusBadRequest, &Error{
		Status: statusError,
		Reason: reason,
	})
}
