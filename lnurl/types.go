package lnurl

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/lightningnetwork/lnd/lnwire"
)

// PayResponse is the first response of an LNURL-pay service.
type PayResponse struct {
	// Callback is the URL from LN SERVICE which will accept the pay request
	// parameters
	Callback string `json:"callback"`

	// MaxSendable is the max amount LN SERVICE is willing to receive, in
	// millisatoshis.
	MaxSendable int64 `json:"maxSendable"`

	// MinSendable is the min amount LN SERVICE is willing to receive, can
	// not be less than 1 or more than `maxSendable`
	MinSendable int64 `json:"minSendable"`

	// Metadata json which must be presented as raw string here, this is
	// required to pass signature verification at a later step.
	Metadata string `json:"metadata"`

	// CommentAllowed is the max length of a comment the payer may attach.
	// Zero means comments are not accepted.
	CommentAllowed int `json:"commentAllowed,omitempty"`

	// Type of LNURL
	Tag Type `json:"tag"`
}

// InvoiceResponse is the response of the callback URL.
type InvoiceResponse struct {
	// PayRequest is a bech32-serialized lightning invoice.
	PayRequest string `json:"pr"`

	// Routes an empty array.
	Routes []string `json:"routes"`
}

type Type string

const (
	TypePayRequest Type = "payRequest"
)

const statusError = "ERROR"

// Error is the body a service returns when it refuses a request.
type Error struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("lnurl service error: %s", e.Reason)
}

// PayParams are the validated terms of an LNURL-pay service.
type PayParams struct {
	// Callback is where invoices are requested.
	Callback string

	Min lnwire.MilliSatoshi
	Max lnwire.MilliSatoshi

	// CommentAllowed is the longest comment the service accepts.
	CommentAllowed int

	// Metadata is the raw metadata string. The invoice's description
	// hash must commit to it.
	Metadata string

	// MetadataHash is sha256(Metadata).
	MetadataHash [32]byte

	// Description is the text/plain entry of the metadata.
	Description string

	// Identifier is the text/identifier or text/email entry, if any.
	Identifier string
}

// CommentsAllowed returns true if the service accepts a comment.
func (p *PayParams) CommentsAllowed() bool {
	return p.CommentAllowed > 0
}

// ParsePayResponse checks a PayResponse and extracts the PayParams from it.
func ParsePayResponse(resp *PayResponse) (*PayParams, error) {
	if resp.Tag != TypePayRequest {
		return nil, fmt.Errorf("%w: got tag %q", ErrNotPayRequest,
			resp.Tag)
	}

	if resp.Callback == "" {
		return nil, fmt.Errorf("response is missing the callback")
	}

	if resp.MinSendable < 1 || resp.MinSendable > resp.MaxSendable {
		return nil, fmt.Errorf("invalid sendable range [%d, %d]",
			resp.MinSendable, resp.MaxSendable)
	}

	var entries [][]interface{}
	if err := json.Unmarshal([]byte(resp.Metadata), &entries); err != nil {
		return nil, fmt.Errorf("could not parse metadata: %w", err)
	}

	params := &PayParams{
		Callback:       resp.Callback,
		Min:            lnwire.MilliSatoshi(resp.MinSendable),
		Max:            lnwire.MilliSatoshi(resp.MaxSendable),
		CommentAllowed: resp.CommentAllowed,
		Metadata:       resp.Metadata,
		MetadataHash:   sha256.Sum256([]byte(resp.Metadata)),
	}

	for _, e := range entries {
		if len(e) != 2 {
			continue
		}

		mime, _ := e[0].(string)
		value, _ := e[1].(string)
		switch mime {
		case "text/plain":
			params.Description = value
		case "text/identifier", "text/email":
			params.Identifier = value
		}
	}

	// Ensure that the response contains the necessary metadata field.
	if params.Description == "" {
		return nil, fmt.Errorf("response metadata does not contain the " +
			"required 'text/plain' field")
	}

	return params, nil
}

// Metadata builds the metadata string a service advertises.
func Metadata(description, identifier string) string {
	entries := [][2]string{{"text/plain", description}}
	if identifier != "" {
		entries = append(entries, [2]string{"text/identifier", identifier})
	}

	b, _ := json.Marshal(entries)

	return string(b)
}
