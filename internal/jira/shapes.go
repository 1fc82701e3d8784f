package jira

import (
	"encoding/json"
	"fmt"
)

// Shape selects how a 2xx body is decoded into a payload. The set is closed.
type Shape int

const (
	ShapeNoContent Shape = iota
	ShapeCreatedIssue
	ShapeIssue
	ShapeSearch
	ShapeComment
	ShapeTransitions
	ShapeUser
	ShapeFields
	ShapeIssueTypes
	ShapeLinkTypes
	ShapeBoards
	ShapeSprints
	ShapeSprint
	ShapeAttachments
)

var shapeNames = map[Shape]string{
	ShapeNoContent:    "no_content",
	ShapeCreatedIssue: "created_issue",
	ShapeIssue:        "issue",
	ShapeSearch:       "search",
	ShapeComment:      "comment",
	ShapeTransitions:  "transitions",
	ShapeUser:         "user",
	ShapeFields:       "fields",
	ShapeIssueTypes:   "issue_types",
	ShapeLinkTypes:    "link_types",
	ShapeBoards:       "boards",
	ShapeSprints:      "sprints",
	ShapeSprint:       "sprint",
	ShapeAttachments:  "attachments",
}

func (s Shape) String() string {
	if n, ok := shapeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// --- JIRA wire types (only the fields we read) ---

type jiraNamed struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type jiraUser struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
	Active       bool   `json:"active"`
}

type jiraComment struct {
	ID      string          `json:"id"`
	Author  *jiraUser       `json:"author"`
	Body    json.RawMessage `json:"body"`
	Created string          `json:"created"`
}

type jiraAttachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	Content  string `json:"content"`
}

type jiraIssue struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields struct {
		Summary     string          `json:"summary"`
		Description json.RawMessage `json:"description"`
		Status      *jiraNamed      `json:"status"`
		Priority    *jiraNamed      `json:"priority"`
		Assignee    *jiraUser       `json:"assignee"`
		IssueType   *jiraNamed      `json:"issuetype"`
		Comment     *struct {
			Comments []jiraComment `json:"comments"`
		} `json:"comment"`
		Attachment []jiraAttachment `json:"attachment"`
	} `json:"fields"`
}

type jiraSprint struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	State         string `json:"state"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	Goal          string `json:"goal"`
	OriginBoardID int    `json:"originBoardId"`
}

type jiraBoard struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location *struct {
		ProjectKey string `json:"projectKey"`
	} `json:"location"`
}

// agilePage is the envelope of every paginated agile endpoint.
type agilePage struct {
	StartAt    int             `json:"startAt"`
	MaxResults int             `json:"maxResults"`
	Total      *int            `json:"total"`
	IsLast     *bool           `json:"isLast"`
	Values     json.RawMessage `json:"values"`
}

// --- Payloads ---

// CreatedIssue is the create_issue payload.
type CreatedIssue struct {
	IssueKey string `json:"issue_key"`
	ID       string `json:"id"`
	URL      string `json:"url"`
}

// IssueSummary is one row of a search page.
type IssueSummary struct {
	Key       string `json:"key"`
	Summary   string `json:"summary"`
	Status    string `json:"status,omitempty"`
	Priority  string `json:"priority,omitempty"`
	Assignee  string `json:"assignee,omitempty"`
	IssueType string `json:"issue_type,omitempty"`
}

// Page carries pagination state. NextStartAt is set only when more results exist;
// fetching them is the caller's decision.
type Page struct {
	StartAt     int  `json:"startAt"`
	MaxResults  int  `json:"maxResults"`
	Total       *int `json:"total,omitempty"`
	IsLast      bool `json:"isLast"`
	NextStartAt *int `json:"nextStartAt,omitempty"`
}

// SearchPage is the search_issues payload.
type SearchPage struct {
	Issues []IssueSummary `json:"issues"`
	Page
}

// Comment is a single issue comment with its body as plain text.
type Comment struct {
	ID      string `json:"id"`
	Author  string `json:"author,omitempty"`
	Body    string `json:"body"`
	Created string `json:"created,omitempty"`
}

// Attachment describes an uploaded file.
type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type,omitempty"`
	URL      string `json:"url,omitempty"`
}

// IssueDetail is the get_issue payload.
type IssueDetail struct {
	IssueSummary
	Description string       `json:"description"`
	URL         string       `json:"url"`
	Comments    []Comment    `json:"comments"`
	Attachments []Attachment `json:"attachments"`
}

// Transition is one available workflow transition.
type Transition struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ToStatus string `json:"to_status,omitempty"`
}

// User is a user search match.
type User struct {
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Active      bool   `json:"active"`
}

// Field is a system or custom field definition.
type Field struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Custom bool   `json:"custom"`
	Type   string `json:"type,omitempty"`
}

// IssueType is an issue type definition.
type IssueType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Subtask     bool   `json:"subtask"`
	Description string `json:"description,omitempty"`
}

// LinkType is an issue link type definition.
type LinkType struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Inward  string `json:"inward"`
	Outward string `json:"outward"`
}

// Board is an agile board.
type Board struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	ProjectKey string `json:"project_key,omitempty"`
}

// Sprint is an agile sprint.
type Sprint struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Goal      string `json:"goal,omitempty"`
	BoardID   int    `json:"board_id,omitempty"`
}

// BoardPage is the get_boards payload.
type BoardPage struct {
	Boards []Board `json:"boards"`
	Page
}

// SprintPage is the get_board_sprints payload.
type SprintPage struct {
	Sprints []Sprint `json:"sprints"`
	Page
}

// extractor decodes a 2xx body for one shape. args are the validated tool arguments.
type extractor func(n *Normalizer, body []byte, args map[string]any) (any, error)

var extractors = map[Shape]extractor{
	ShapeNoContent:    extractNoContent,
	ShapeCreatedIssue: extractCreatedIssue,
	ShapeIssue:        extractIssue,
	ShapeSearch:       extractSearch,
	ShapeComment:      extractComment,
	ShapeTransitions:  extractTransitions,
	ShapeUser:         extractUsers,
	ShapeFields:       extractFields,
	ShapeIssueTypes:   extractIssueTypes,
	ShapeLinkTypes:    extractLinkTypes,
	ShapeBoards:       extractBoards,
	ShapeSprints:      extractSprints,
	ShapeSprint:       extractSprint,
	ShapeAttachments:  extractAttachments,
}

func extractNoContent(_ *Normalizer, _ []byte, args map[string]any) (any, error) {
	out := map[string]any{"ok": true}
	for _, k := range []string{"issue_key", "sprint_id", "transition_id"} {
		if v, ok := args[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func extractCreatedIssue(n *Normalizer, body []byte, _ map[string]any) (any, error) {
	var v struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	if v.Key == "" {
		return nil, fmt.Errorf("response has no issue key")
	}
	return CreatedIssue{IssueKey: v.Key, ID: v.ID, URL: n.browseURL(v.Key)}, nil
}

func summarize(i jiraIssue) IssueSummary {
	s := IssueSummary{Key: i.Key, Summary: i.Fields.Summary}
	if i.Fields.Status != nil {
		s.Status = i.Fields.Status.Name
	}
	if i.Fields.Priority != nil {
		s.Priority = i.Fields.Priority.Name
	}
	if i.Fields.Assignee != nil {
		s.Assignee = i.Fields.Assignee.DisplayName
	}
	if i.Fields.IssueType != nil {
		s.IssueType = i.Fields.IssueType.Name
	}
	return s
}

func toComment(c jiraComment) Comment {
	out := Comment{ID: c.ID, Body: richText(c.Body), Created: c.Created}
	if c.Author != nil {
		out.Author = c.Author.DisplayName
	}
	return out
}

func toAttachment(a jiraAttachment) Attachment {
	return Attachment{ID: a.ID, Filename: a.Filename, Size: a.Size, MimeType: a.MimeType, URL: a.Content}
}

func extractIssue(n *Normalizer, body []byte, _ map[string]any) (any, error) {
	var i jiraIssue
	if err := json.Unmarshal(body, &i); err != nil {
		return nil, err
	}
	if i.Key == "" {
		return nil, fmt.Errorf("response has no issue key")
	}
	d := IssueDetail{
		IssueSummary: summarize(i),
		Description:  richText(i.Fields.Description),
		URL:          n.browseURL(i.Key),
		Comments:     []Comment{},
		Attachments:  []Attachment{},
	}
	if i.Fields.Comment != nil {
		for _, c := range i.Fields.Comment.Comments {
			d.Comments = append(d.Comments, toComment(c))
		}
	}
	for _, a := range i.Fields.Attachment {
		d.Attachments = append(d.Attachments, toAttachment(a))
	}
	return d, nil
}

// pageOf computes pagination from what JIRA reported. count is the number of
// items actually returned, used when JIRA reports neither total nor isLast.
func pageOf(startAt, maxResults int, total *int, isLast *bool, count int) Page {
	p := Page{StartAt: startAt, MaxResults: maxResults, Total: total}
	more := false
	switch {
	case isLast != nil:
		more = !*isLast
	case total != nil:
		more = startAt+maxResults < *total
	default:
		more = maxResults > 0 && count >= maxResults
	}
	if more && maxResults > 0 {
		next := startAt + maxResults
		p.NextStartAt = &next
	}
	p.IsLast = p.NextStartAt == nil
	return p
}

func extractSearch(_ *Normalizer, body []byte, _ map[string]any) (any, error) {
	var v struct {
		StartAt    int         `json:"startAt"`
		MaxResults int         `json:"maxResults"`
		Total      *int        `json:"total"`
		IsLast     *bool       `json:"isLast"`
		Issues     []jiraIssue `json:"issues"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	if v.Issues == nil {
		return nil, fmt.Errorf("response has no issues array")
	}
	out := SearchPage{Issues: make([]IssueSummary, 0, len(v.Issues))}
	for _, i := range v.Issues {
		out.Issues = append(out.Issues, summarize(i))
	}
	out.Page = pageOf(v.StartAt, v.MaxResults, v.Total, v.IsLast, len(v.Issues))
	return out, nil
}

func extractComment(_ *Normalizer, body []byte, _ map[string]any) (any, error) {
	var c jiraComment
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, err
	}
	return toComment(c), nil
}

func extractTransitions(_ *Normalizer, body []byte, _ map[string]any) (any, error) {
	var v struct {
		Transitions []struct {
			ID   string     `json:"id"`
			Name string     `json:"name"`
			To   *jiraNamed `json:"to"`
		} `json:"transitions"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	out := make([]Transition, 0, len(v.Transitions))
	for _, t := range v.Transitions {
		tr := Transition{ID: t.ID, Name: t.Name}
		if t.To != nil {
			tr.ToStatus = t.To.Name
		}
		out = append(out, tr)
	}
	return map[string]any{"transitions": out}, nil
}

func extractUsers(_ *Normalizer, body []byte, args map[string]any) (any, error) {
	var v []jiraUser
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, &ToolError{Kind: KindNotFound, Message: fmt.Sprintf("no user matches %q", args["query"])}
	}
	out := make([]User, 0, len(v))
	for _, u := range v {
		out = append(out, User{AccountID: u.AccountID, DisplayName: u.DisplayName, Email: u.EmailAddress, Active: u.Active})
	}
	return map[string]any{"users": out}, nil
}

func extractFields(_ *Normalizer, body []byte, _ map[string]any) (any, error) {
	var v []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Custom bool   `json:"custom"`
		Schema *struct {
			Type string `json:"type"`
		} `json:"schema"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	out := make([]Field, 0, len(v))
	for _, f := range v {
		fd := Field{ID: f.ID, Name: f.Name, Custom: f.Custom}
		if f.Schema != nil {
			fd.Type = f.Schema.Type
		}
		out = append(out, fd)
	}
	return map[string]any{"fields": out}, nil
}

func extractIssueTypes(_ *Normalizer, body []byte, _ map[string]any) (any, error) {
	var v []IssueType
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	if v == nil {
		v = []IssueType{}
	}
	return map[string]any{"issue_types": v}, nil
}

func extractLinkTypes(_ *Normalizer, body []byte, _ map[string]any) (any, error) {
	var v struct {
		IssueLinkTypes []LinkType `json:"issueLinkTypes"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	if v.IssueLinkTypes == nil {
		v.IssueLinkTypes = []LinkType{}
	}
	return map[string]any{"link_types": v.IssueLinkTypes}, nil
}

func decodeAgilePage(body []byte, values any) (Page, error) {
	var p agilePage
	if err := json.Unmarshal(body, &p); err != nil {
		return Page{}, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(p.Values, &items); err != nil || items == nil {
		return Page{}, fmt.Errorf("response has no values array")
	}
	if err := json.Unmarshal(p.Values, values); err != nil {
		return Page{}, err
	}
	return pageOf(p.StartAt, p.MaxResults, p.Total, p.IsLast, len(items)), nil
}

func extractBoards(_ *Normalizer, body []byte, _ map[string]any) (any, error) {
	var raw []jiraBoard
	page, err := decodeAgilePage(body, &raw)
	if err != nil {
		return nil, err
	}
	out := BoardPage{Boards: make([]Board, 0, len(raw)), Page: page}
	for _, b := range raw {
		board := Board{ID: b.ID, Name: b.Name, Type: b.Type}
		if b.Location != nil {
			board.ProjectKey = b.Location.ProjectKey
		}
		out.Boards = append(out.Boards, board)
	}
	return out, nil
}

func toSprint(s jiraSprint) Sprint {
	return Sprint{ID: s.ID, Name: s.Name, State: s.State, StartDate: s.StartDate, EndDate: s.EndDate, Goal: s.Goal, BoardID: s.OriginBoardID}
}

func extractSprints(_ *Normalizer, body []byte, _ map[string]any) (any, error) {
	var raw []jiraSprint
	page, err := decodeAgilePage(body, &raw)
	if err != nil {
		return nil, err
	}
	out := SprintPage{Sprints: make([]Sprint, 0, len(raw)), Page: page}
	for _, s := range raw {
		out.Sprints = append(out.Sprints, toSprint(s))
	}
	return out, nil
}

func extractSprint(_ *Normalizer, body []byte, _ map[string]any) (any, error) {
	var s jiraSprint
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, fmt.Errorf("response has no sprint id")
	}
	return toSprint(s), nil
}

func extractAttachments(_ *Normalizer, body []byte, _ map[string]any) (any, error) {
	var v []jiraAttachment
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	out := make([]Attachment, 0, len(v))
	for _, a := range v {
		out = append(out, toAttachment(a))
	}
	return map[string]any{"attachments": out}, nil
}
