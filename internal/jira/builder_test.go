package jira

import (
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{Host: "acme.atlassian.net", Email: "bot@acme.test", APIToken: "s3cret-token"}

func buildFor(t *testing.T, apiVersion int, tool string, args map[string]any) (*Request, error) {
	t.Helper()
	spec, err := defaultRegistry(t).Resolve(tool)
	require.NoError(t, err)
	return NewBuilder(testCreds, apiVersion, "jira-mcp/test").Build(spec, args)
}

func requireValidationError(t *testing.T, err error, kind Kind, field string) {
	t.Helper()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, kind, ve.Kind)
	assert.Equal(t, field, ve.Field)
}

// --- Site URL ---

func TestSiteURL(t *testing.T) {
	assert.Equal(t, "https://acme.atlassian.net", SiteURL("acme.atlassian.net"))
	assert.Equal(t, "https://acme.atlassian.net", SiteURL(" https://acme.atlassian.net/ "))
	assert.Equal(t, "http://127.0.0.1:8080", SiteURL("http://127.0.0.1:8080"))
}

// --- Validation order ---

func TestBuild_MissingParameterReportedFirst(t *testing.T) {
	_, err := buildFor(t, 2, "create_issue", map[string]any{"project": "PROJ", "bogus": true})
	requireValidationError(t, err, KindMissingParameter, "issue_type")
}

func TestBuild_NullRequiredCountsAsMissing(t *testing.T) {
	_, err := buildFor(t, 2, "add_comment", map[string]any{"issue_key": "PROJ-1", "body": nil})
	requireValidationError(t, err, KindMissingParameter, "body")
}

func TestBuild_UnknownParameter(t *testing.T) {
	_, err := buildFor(t, 2, "create_issue", map[string]any{
		"project": "PROJ", "summary": "s", "issue_type": "Bug", "zeta": 1, "assignee_email": "x",
	})
	requireValidationError(t, err, KindUnknownParameter, "assignee_email")
}

func TestBuild_InvalidParameter(t *testing.T) {
	cases := []struct {
		name  string
		tool  string
		args  map[string]any
		field string
	}{
		{"lowercase project key", "create_issue", map[string]any{"project": "proj", "summary": "s", "issue_type": "Bug"}, "project"},
		{"empty summary", "create_issue", map[string]any{"project": "PROJ", "summary": "", "issue_type": "Bug"}, "summary"},
		{"page size too large", "search_issues", map[string]any{"jql": "project = PROJ", "maxResults": 500}, "maxResults"},
		{"negative startAt", "search_issues", map[string]any{"jql": "project = PROJ", "startAt": -1}, "startAt"},
		{"string page size", "search_issues", map[string]any{"jql": "project = PROJ", "maxResults": "50"}, "maxResults"},
		{"fractional page size", "search_issues", map[string]any{"jql": "project = PROJ", "maxResults": 1.5}, "maxResults"},
		{"bad issue key", "get_issue", map[string]any{"issue_key": "../secrets"}, "issue_key"},
		{"fields not an object", "update_issue", map[string]any{"issue_key": "PROJ-1", "fields": "summary=x"}, "fields"},
		{"empty sprint issue list", "add_issues_to_sprint", map[string]any{"sprint_id": 7, "issue_keys": []string{}}, "issue_keys"},
		{"bad sprint issue key", "add_issues_to_sprint", map[string]any{"sprint_id": 7, "issue_keys": []string{"PROJ-1", "nope"}}, "issue_keys"},
		{"bad base64", "add_attachment", map[string]any{"issue_key": "PROJ-1", "filename": "a.txt", "content": "***"}, "content"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildFor(t, 2, tc.tool, tc.args)
			requireValidationError(t, err, KindInvalidParameter, tc.field)
		})
	}
}

// --- Serialization ---

func TestBuild_CreateIssueBody(t *testing.T) {
	req, err := buildFor(t, 2, "create_issue", map[string]any{
		"project":     "PROJ",
		"summary":     "Login broken",
		"issue_type":  "Bug",
		"description": "Steps:\n1. open",
		"labels":      []string{"web", "p1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "https://acme.atlassian.net/rest/api/2/issue", req.URL)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"fields":{
		"project":{"key":"PROJ"},
		"summary":"Login broken",
		"issuetype":{"name":"Bug"},
		"description":"Steps:\n1. open",
		"labels":["web","p1"]}}`, string(req.Body))
}

func TestBuild_RichTextBecomesADFOnV3(t *testing.T) {
	req, err := buildFor(t, 3, "add_comment", map[string]any{"issue_key": "PROJ-7", "body": "first\nsecond"})
	require.NoError(t, err)

	assert.Equal(t, "https://acme.atlassian.net/rest/api/3/issue/PROJ-7/comment", req.URL)
	assert.JSONEq(t, `{"body":{"type":"doc","version":1,"content":[
		{"type":"paragraph","content":[{"type":"text","text":"first"}]},
		{"type":"paragraph","content":[{"type":"text","text":"second"}]}]}}`, string(req.Body))
}

func TestBuild_QueryDefaultsAndEncoding(t *testing.T) {
	req, err := buildFor(t, 2, "search_issues", map[string]any{"jql": "project = PROJ AND text ~ \"a&b\"", "startAt": 50})
	require.NoError(t, err)
	assert.Nil(t, req.Body)
	assert.Empty(t, req.Header.Get("Content-Type"))

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	assert.Equal(t, "/rest/api/2/search", u.Path)
	q := u.Query()
	assert.Equal(t, `project = PROJ AND text ~ "a&b"`, q.Get("jql"))
	assert.Equal(t, "50", q.Get("startAt"))
	assert.Equal(t, "50", q.Get("maxResults"))
	assert.Equal(t, "summary,status,priority,assignee,issuetype", q.Get("fields"))
}

func TestBuild_QueryTargetsAndBooleans(t *testing.T) {
	req, err := buildFor(t, 2, "delete_issue", map[string]any{"issue_key": "PROJ-9", "delete_subtasks": true})
	require.NoError(t, err)
	assert.Equal(t, "DELETE", req.Method)
	assert.Equal(t, "https://acme.atlassian.net/rest/api/2/issue/PROJ-9?deleteSubtasks=true", req.URL)
}

func TestBuild_OptionalNullIsIgnored(t *testing.T) {
	req, err := buildFor(t, 2, "delete_issue", map[string]any{"issue_key": "PROJ-9", "delete_subtasks": nil})
	require.NoError(t, err)
	assert.Equal(t, "https://acme.atlassian.net/rest/api/2/issue/PROJ-9", req.URL)
}

func TestBuild_AgilePathAndIntegers(t *testing.T) {
	req, err := buildFor(t, 2, "get_board_sprints", map[string]any{"board_id": 42, "state": "active,future"})
	require.NoError(t, err)

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	assert.Equal(t, "/rest/agile/1.0/board/42/sprint", u.Path)
	assert.Equal(t, "active,future", u.Query().Get("state"))
}

func TestBuild_SprintIssuesArray(t *testing.T) {
	req, err := buildFor(t, 2, "add_issues_to_sprint", map[string]any{"sprint_id": float64(12), "issue_keys": []any{"PROJ-1", "PROJ-2"}})
	require.NoError(t, err)
	assert.Equal(t, "https://acme.atlassian.net/rest/agile/1.0/sprint/12/issue", req.URL)
	assert.JSONEq(t, `{"issues":["PROJ-1","PROJ-2"]}`, string(req.Body))
}

func TestBuild_AttachmentMultipart(t *testing.T) {
	content := base64.StdEncoding.EncodeToString([]byte("hello attachment"))
	req, err := buildFor(t, 2, "add_attachment", map[string]any{"issue_key": "PROJ-3", "filename": "notes.txt", "content": content})
	require.NoError(t, err)

	assert.Equal(t, "no-check", req.Header.Get("X-Atlassian-Token"))
	mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	mr := multipart.NewReader(strings.NewReader(string(req.Body)), params["boundary"])
	part, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "file", part.FormName())
	assert.Equal(t, "notes.txt", part.FileName())
	data, err := io.ReadAll(part)
	require.NoError(t, err)
	assert.Equal(t, "hello attachment", string(data))
}

func TestBuild_AuthHeaders(t *testing.T) {
	req, err := buildFor(t, 2, "list_fields", nil)
	require.NoError(t, err)

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("bot@acme.test:s3cret-token"))
	assert.Equal(t, want, req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, "jira-mcp/test", req.Header.Get("User-Agent"))
}

func TestBuild_ErrorsNeverContainCredentials(t *testing.T) {
	_, err := buildFor(t, 2, "create_issue", map[string]any{"project": "s3cret-token"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "s3cret-token")
	assert.NotContains(t, err.Error(), base64.StdEncoding.EncodeToString([]byte("bot@acme.test:s3cret-token")))
}
