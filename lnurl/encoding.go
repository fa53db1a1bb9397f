// Package lnurl implements the parts of the LNURL-pay protocol a wallet needs
// to turn a static code into an invoice, plus a small LNURL-pay service.
package lnurl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
)

const humanReadablePart = "lnurl"

var (
	// ErrNotLNURL is returned for strings that are not an LNURL in any of
	// the supported forms.
	ErrNotLNURL = errors.New("not an lnurl")

	// ErrNotPayRequest is returned when the service is not LNURL-pay.
	ErrNotPayRequest = errors.New("lnurl is not a pay request")
)

func DecodeURL(lnurl string) (string, error) {
	// LNURLs are usually longer than the 90 characters bech32 allows.
	hrp, data, err := bech32.DecodeNoLimit(lnurl)
	if err != nil {
		return "", err
	}

	if hrp != humanReadablePart {
		return "", fmt.Errorf("incorrect hrp for LNURL. Expected "+
			"'%s', got '%s'", humanReadablePart, hrp)
	}

	data, err = bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func EncodeURL(url string) (string, error) {
	converted, err := bech32.ConvertBits([]byte(url), 8, 5, true)
	if err != nil {
		return "", err
	}

	str, err := bech32.Encode(humanReadablePart, converted)
	if err != nil {
		return "", err
	}

	return strings.ToUpper(str), nil
}

// LightningAddressURL returns the well-known URL of a lightning address
// (LUD-16).
func LightningAddressURL(username, domain string) string {
	return fmt.Sprintf("https://%s/.well-known/lnurlp/%s", domain, username)
}

// Target is an LNURL-pay code resolved to the URL that serves its terms.
type Target struct {
	// URL is the https (or onion http) URL of the first request.
	URL string

	// Address is the lightning address if the input was one.
	Address string
}

// ParseTarget recognises the forms an LNURL-pay code can take: a bech32
// LNURL (optionally with a lightning: scheme), an lnurlp:// URL, a
// <username>@<domain> lightning address, or an https URL on one of the
// given domains. The input is expected to be trimmed. Only the scheme, the
// bech32 payload and lightning addresses are case folded.
func ParseTarget(s string, domains []string) (*Target, error) {
	if strings.HasPrefix(strings.ToLower(s), "lightning:") {
		s = s[len("lightning:"):]
	}
	lower := strings.ToLower(s)

	switch {
	case strings.HasPrefix(lower, humanReadablePart+"1"):
		u, err := DecodeURL(lower)
		if err != nil {
			return nil, fmt.Errorf("error decoding LNURL: %w", err)
		}

		return &Target{URL: u}, nil

	case strings.HasPrefix(lower, "lnurlp://"):
		rest := s[len("lnurlp"):]
		if isOnion("http" + rest) {
			return &Target{URL: "http" + rest}, nil
		}

		return &Target{URL: "https" + rest}, nil

	case strings.Contains(lower, "@") && !strings.Contains(lower, "/"):
		// This is an LN Address:
		parts := strings.Split(lower, "@")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" ||
			!strings.Contains(parts[1], ".") {

			return nil, fmt.Errorf("%w: invalid LN address. Expected "+
				"the form <username>@<domain>", ErrNotLNURL)
		}

		username, domain := parts[0], parts[1]

		return &Target{
			URL:     LightningAddressURL(username, domain),
			Address: lower,
		}, nil

	case strings.HasPrefix(lower, "https://"):
		u, err := url.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotLNURL, err)
		}

		// Only the host is case insensitive, the path is passed on
		// untouched.
		host := strings.ToLower(u.Hostname())
		for _, d := range domains {
			if host == strings.ToLower(d) {
				return &Target{URL: s}, nil
			}
		}
	}

	return nil, ErrNotLNURL
}

func isOnion(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}

	return strings.HasSuffix(parsed.Hostname(), ".onion")
}
