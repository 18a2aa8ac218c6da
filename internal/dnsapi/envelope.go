package dnsapi

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/clbanning/mxj/v2"
	"nic-dns/internal/common/errors"
	commonhttp "nic-dns/internal/common/http"
)

// apiErrorEntry is one <error code="N">text</error> of an error envelope.
type apiErrorEntry struct {
	Code string
	Text string
}

// parseErrors extracts response/errors/error entries. ok is false when the
// body is not XML at all.
func parseErrors(body []byte) (entries []apiErrorEntry, ok bool) {
	m, err := mxj.NewMapXml(body)
	if err != nil {
		return nil, false
	}

	values, err := m.ValuesForPath("response.errors.error")
	if err != nil {
		return nil, true
	}

	for _, v := range values {
		switch e := v.(type) {
		case map[string]interface{}:
			entry := apiErrorEntry{}
			if code, ok := e["-code"].(string); ok {
				entry.Code = code
			}
			if text, ok := e["#text"].(string); ok {
				entry.Text = strings.TrimSpace(text)
			}
			entries = append(entries, entry)
		case string:
			entries = append(entries, apiErrorEntry{Text: strings.TrimSpace(e)})
		}
	}
	return entries, true
}

// responseError maps a non-2xx DNS-master response to an error. A single
// error entry keeps its NIC code so callers can tell expired tokens, unknown
// services and zones, and rejected records apart.
func responseError(resp *commonhttp.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return errors.AuthError("access token rejected").WithResponse(resp.StatusCode, resp.Body)
	}

	entries, isXML := parseErrors(resp.Body)

	switch {
	case len(entries) == 1:
		msg := entries[0].Text
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		return errors.APIError(entries[0].Code, msg).WithResponse(resp.StatusCode, resp.Body)
	case len(entries) > 1:
		texts := make([]string, 0, len(entries))
		for _, e := range entries {
			texts = append(texts, fmt.Sprintf("[%s] %s", e.Code, e.Text))
		}
		return errors.APIError("", strings.Join(texts, "; ")).WithResponse(resp.StatusCode, resp.Body)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return errors.TransportError(fmt.Sprintf("dns-master returned status %d", resp.StatusCode), nil).
			WithResponse(resp.StatusCode, resp.Body)
	case !isXML && resp.StatusCode < 400:
		return errors.MalformedResponseError(fmt.Sprintf("unexpected status %d", resp.StatusCode), nil).
			WithResponse(resp.StatusCode, resp.Body)
	default:
		return errors.APIError("", fmt.Sprintf("request failed with status %d", resp.StatusCode)).
			WithResponse(resp.StatusCode, resp.Body)
	}
}

// isAuthFailure reports whether err means the bearer token was not accepted
func isAuthFailure(err error) bool {
	if errors.IsExpiredToken(err) {
		return true
	}
	appErr, ok := errors.As(err)
	return ok && appErr.Type == errors.ErrTypeAuth && appErr.Status() == http.StatusUnauthorized
}

// decodeData decodes the single <data> element of a success envelope.
func decodeData[T any](resp *commonhttp.Response) (*T, error) {
	var envelope struct {
		Status string `xml:"status"`
		Data   []T    `xml:"data"`
	}

	if err := xml.Unmarshal(resp.Body, &envelope); err != nil {
		if errors.IsType(err, errors.ErrTypeValidation) {
			return nil, errors.MalformedResponseError("response contains an invalid record", err).
				WithResponse(resp.StatusCode, resp.Body)
		}
		return nil, errors.MalformedResponseError("failed to decode response", err).
			WithResponse(resp.StatusCode, resp.Body)
	}
	if envelope.Status != "" && envelope.Status != "success" {
		return nil, errors.APIError("", fmt.Sprintf("request finished with status %q", envelope.Status)).
			WithResponse(resp.StatusCode, resp.Body)
	}
	if len(envelope.Data) != 1 {
		return nil, errors.MalformedResponseError(fmt.Sprintf("expected exactly one <data> element, found %d", len(envelope.Data)), nil).
			WithResponse(resp.StatusCode, resp.Body)
	}

	return &envelope.Data[0], nil
}
