package jira

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// DefaultRetryableKinds are the JIRA-domain kinds a caller may safely retry.
var DefaultRetryableKinds = []Kind{KindRateLimited, KindServerFault}

// Normalizer converts raw responses into ToolResults.
type Normalizer struct {
	baseURL   string
	retryable map[Kind]bool
}

// NewNormalizer creates a Normalizer. baseURL builds browse links; retryableKinds
// lists which of RateLimited/ServerFault are reported as retryable (nil means the defaults).
func NewNormalizer(baseURL string, retryableKinds []Kind) *Normalizer {
	if retryableKinds == nil {
		retryableKinds = DefaultRetryableKinds
	}
	n := &Normalizer{baseURL: strings.TrimRight(baseURL, "/"), retryable: map[Kind]bool{}}
	for _, k := range retryableKinds {
		n.retryable[k] = true
	}
	return n
}

func (n *Normalizer) browseURL(key string) string {
	return n.baseURL + "/browse/" + key
}

// Normalize maps a response for spec into a ToolResult. args are the validated
// tool arguments, echoed by shapes that have no response body.
func (n *Normalizer) Normalize(spec ToolSpec, args map[string]any, resp *Response) ToolResult {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		payload, err := n.decode(spec, args, resp)
		if err != nil {
			return Failed(err)
		}
		return Succeeded(payload)
	}
	return Failed(n.statusError(resp))
}

func (n *Normalizer) decode(spec ToolSpec, args map[string]any, resp *Response) (any, error) {
	extract, ok := extractors[spec.Shape]
	if !ok {
		return nil, &ToolError{Kind: KindUnknown, Status: resp.StatusCode, Message: fmt.Sprintf("no decoder for %s", spec.Shape)}
	}
	body := bytes.TrimSpace(resp.Body)
	if spec.Shape != ShapeNoContent && len(body) == 0 {
		return nil, &ToolError{Kind: KindServerFault, Status: resp.StatusCode, Message: "JIRA returned an empty body"}
	}
	payload, err := extract(n, body, args)
	if err != nil {
		var te *ToolError
		if errors.As(err, &te) {
			return nil, te
		}
		return nil, &ToolError{
			Kind:    KindServerFault,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("malformed %s response: %v", spec.Shape, err),
		}
	}
	return payload, nil
}

// KindForStatus maps a non-2xx status to its error kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuthenticationFailed
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidationRejected
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500 && status < 600:
		return KindServerFault
	default:
		return KindUnknown
	}
}

func (n *Normalizer) statusError(resp *Response) *ToolError {
	kind := KindForStatus(resp.StatusCode)
	msg := errorMessage(resp)
	if hint := statusHint(resp.StatusCode, resp.Body); hint != "" {
		msg += " (" + hint + ")"
	}
	if resp.Exhausted {
		msg += fmt.Sprintf(" after %d attempts", resp.Attempts)
	}
	return &ToolError{
		Kind:      kind,
		Status:    resp.StatusCode,
		Message:   msg,
		Retryable: n.retryable[kind] && !resp.Exhausted && (kind == KindRateLimited || kind == KindServerFault),
	}
}

// errorMessage extracts JIRA's {errorMessages, errors} body, falling back to the status text.
func errorMessage(resp *Response) string {
	var v struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
		Message       string            `json:"message"`
	}
	body := bytes.TrimSpace(resp.Body)
	if len(body) > 0 && json.Unmarshal(body, &v) == nil {
		parts := append([]string{}, v.ErrorMessages...)
		fields := make([]string, 0, len(v.Errors))
		for f := range v.Errors {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			parts = append(parts, f+": "+v.Errors[f])
		}
		if len(parts) == 0 && v.Message != "" {
			parts = append(parts, v.Message)
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}
	if looksLikeHTML(resp) {
		return fmt.Sprintf("JIRA returned an HTML page with status %d", resp.StatusCode)
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return fmt.Sprintf("JIRA returned %d %s", resp.StatusCode, text)
	}
	return fmt.Sprintf("JIRA returned status %d", resp.StatusCode)
}

func looksLikeHTML(resp *Response) bool {
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "text/html") {
		return true
	}
	b := bytes.ToLower(bytes.TrimSpace(resp.Body))
	return bytes.HasPrefix(b, []byte("<!doctype html")) || bytes.HasPrefix(b, []byte("<html"))
}

func statusHint(status int, body []byte) string {
	switch {
	case status == http.StatusUnauthorized:
		return "check JIRA_EMAIL and JIRA_API_TOKEN"
	case status == http.StatusForbidden:
		if bytes.Contains(bytes.ToLower(body), []byte("captcha")) {
			return "CAPTCHA challenge; sign in through the browser to clear it"
		}
		return "the account lacks permission for this operation"
	case status == http.StatusNotFound:
		return "the resource does not exist or is not visible to this account"
	case status == http.StatusTooManyRequests:
		return "rate limited by JIRA"
	case status >= 300 && status < 400:
		return "redirected, likely a login page; check JIRA_HOST"
	}
	return ""
}
