package jira

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Credentials identify the JIRA site and the account calls are made as.
type Credentials struct {
	Host     string
	Email    string
	APIToken string
}

// Request is a fully built HTTP exchange, ready for the transport.
type Request struct {
	Tool   string
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Builder turns validated tool arguments into authenticated JIRA requests.
// It holds no mutable state; one Builder serves all invocations.
type Builder struct {
	baseURL    string
	apiVersion int
	authHeader string
	userAgent  string
}

// NewBuilder creates a Builder for the given site. Host may be a bare hostname
// ("acme.atlassian.net") or a full base URL.
func NewBuilder(creds Credentials, apiVersion int, userAgent string) *Builder {
	if apiVersion == 0 {
		apiVersion = 2
	}
	if userAgent == "" {
		userAgent = "jira-mcp"
	}
	token := base64.StdEncoding.EncodeToString([]byte(creds.Email + ":" + creds.APIToken))
	return &Builder{
		baseURL:    SiteURL(creds.Host),
		apiVersion: apiVersion,
		authHeader: "Basic " + token,
		userAgent:  userAgent,
	}
}

// SiteURL normalizes a JIRA host into a scheme-qualified base URL without a trailing slash.
func SiteURL(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return host
}

// BaseURL returns the site URL requests are sent to.
func (b *Builder) BaseURL() string { return b.baseURL }

// APIVersion returns the platform REST API version in use.
func (b *Builder) APIVersion() int { return b.apiVersion }

func (b *Builder) apiRoot(api API) string {
	if api == APIAgile {
		return b.baseURL + "/rest/agile/1.0"
	}
	return b.baseURL + "/rest/api/" + strconv.Itoa(b.apiVersion)
}

// Build validates args against spec and serializes them into a Request.
func (b *Builder) Build(spec ToolSpec, args map[string]any) (*Request, error) {
	for _, name := range spec.RequiredParams() {
		if v, ok := args[name]; !ok || v == nil {
			return nil, &ValidationError{Kind: KindMissingParameter, Field: name, Message: "parameter is required"}
		}
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := spec.Param(name); !ok {
			return nil, &ValidationError{Kind: KindUnknownParameter, Field: name, Message: "parameter is not accepted by " + spec.Name}
		}
	}

	values, err := normalizeArguments(args)
	if err != nil {
		return nil, err
	}
	// Optional params passed as explicit null are treated as absent.
	for name, v := range values {
		if v == nil {
			delete(values, name)
		}
	}
	if err := validateArguments(spec, values); err != nil {
		return nil, err
	}

	path := spec.Path
	query := url.Values{}
	body := map[string]any{}
	var form []Param

	for _, p := range spec.Params {
		v, ok := values[p.Name]
		if !ok {
			if p.Default == nil {
				continue
			}
			v = p.Default
		}
		if p.Base64 {
			if _, err := base64.StdEncoding.DecodeString(v.(string)); err != nil {
				return nil, &ValidationError{Kind: KindInvalidParameter, Field: p.Name, Message: "content is not valid base64"}
			}
		}

		switch p.In {
		case InPath:
			path = strings.ReplaceAll(path, "{"+p.Name+"}", url.PathEscape(formatScalar(v)))
		case InQuery:
			query.Set(wireName(p), formatScalar(v))
		case InBody:
			if p.Rich && b.apiVersion >= 3 {
				v = adfDocFromText(v.(string))
			}
			setPath(body, wireName(p), v)
		case InMultipart:
			form = append(form, p)
		}
	}

	u := b.apiRoot(spec.API) + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req := &Request{
		Tool:   spec.Name,
		Method: spec.Method,
		URL:    u,
		Header: make(http.Header),
	}
	req.Header.Set("Authorization", b.authHeader)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", b.userAgent)

	switch {
	case len(form) > 0:
		payload, contentType, err := multipartBody(form, values)
		if err != nil {
			return nil, err
		}
		req.Body = payload
		req.Header.Set("Content-Type", contentType)
		// Attachment uploads are rejected without the XSRF opt-out header.
		req.Header.Set("X-Atlassian-Token", "no-check")
	case len(body) > 0:
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		req.Body = payload
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// normalizeArguments round-trips args through JSON so that every value has a
// JSON type (float64, string, bool, []any, map[string]any) before validation.
func normalizeArguments(args map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, &ValidationError{Kind: KindInvalidParameter, Message: "arguments are not JSON-encodable: " + err.Error()}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ValidationError{Kind: KindInvalidParameter, Message: err.Error()}
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func wireName(p Param) string {
	if p.Target != "" {
		return p.Target
	}
	return p.Name
}

// formatScalar renders a path or query value. Whole numbers print without a fraction.
func formatScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, formatScalar(e))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

// setPath writes v into m at a dotted path, creating intermediate objects.
func setPath(m map[string]any, dotted string, v any) {
	keys := strings.Split(dotted, ".")
	cur := m
	for _, k := range keys[:len(keys)-1] {
		next, ok := cur[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[k] = next
		}
		cur = next
	}
	cur[keys[len(keys)-1]] = v
}

// multipartBody encodes the single file upload JIRA's attachment endpoint accepts:
// the base64 param is the content, the remaining string param names the file.
func multipartBody(form []Param, values map[string]any) ([]byte, string, error) {
	var (
		filename string
		content  []byte
	)
	for _, p := range form {
		s, _ := values[p.Name].(string)
		if p.Base64 {
			decoded, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, "", &ValidationError{Kind: KindInvalidParameter, Field: p.Name, Message: "content is not valid base64"}
			}
			content = decoded
			continue
		}
		filename = s
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", fmt.Errorf("failed to write multipart: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
