package jira

import "net/http"

const (
	issueKeyPattern   = `^[A-Z][A-Z0-9]+-[0-9]+$`
	projectKeyPattern = `^[A-Z][A-Z0-9]+$`
	datePattern       = `^[0-9]{4}-[0-9]{2}-[0-9]{2}`

	// MaxPageSize bounds maxResults on every paginated tool.
	MaxPageSize = 100
)

func intPtr(v int) *int { return &v }

func issueKeyParam(description string) Param {
	return Param{Name: "issue_key", Type: TypeString, In: InPath, Required: true, Pattern: issueKeyPattern, Description: description}
}

func pageParams(defaultMax int) []Param {
	return []Param{
		{Name: "startAt", Type: TypeInteger, In: InQuery, Default: 0, Minimum: intPtr(0), Description: "Index of the first result to return (default: 0)"},
		{Name: "maxResults", Type: TypeInteger, In: InQuery, Default: defaultMax, Minimum: intPtr(0), Maximum: intPtr(MaxPageSize), Description: "Page size, at most 100 (default: 50)"},
	}
}

// DefaultTools returns the built-in tool set.
func DefaultTools() []ToolSpec {
	return []ToolSpec{
		{
			Name:        "create_issue",
			Description: "Create a new Jira issue. Returns the new issue key and browse URL.",
			Method:      http.MethodPost,
			Path:        "/issue",
			Shape:       ShapeCreatedIssue,
			Params: []Param{
				{Name: "project", Type: TypeString, In: InBody, Target: "fields.project.key", Required: true, Pattern: projectKeyPattern, Description: "Project key (e.g. 'PROJ')"},
				{Name: "summary", Type: TypeString, In: InBody, Target: "fields.summary", Required: true, Description: "Issue summary/title"},
				{Name: "issue_type", Type: TypeString, In: InBody, Target: "fields.issuetype.name", Required: true, Description: "Issue type name (e.g. 'Bug', 'Task', 'Story')"},
				{Name: "description", Type: TypeString, In: InBody, Target: "fields.description", Rich: true, Description: "Issue description (plain text)"},
				{Name: "priority", Type: TypeString, In: InBody, Target: "fields.priority.name", Description: "Priority name (e.g. 'High')"},
				{Name: "assignee", Type: TypeString, In: InBody, Target: "fields.assignee.accountId", Description: "Assignee account ID (use get_user to look one up)"},
				{Name: "labels", Type: TypeArray, In: InBody, Target: "fields.labels", Description: "Labels to set on the issue"},
			},
		},
		{
			Name:        "get_issue",
			Description: "Get issue details including status, assignee, comments and attachments.",
			Method:      http.MethodGet,
			Path:        "/issue/{issue_key}",
			Shape:       ShapeIssue,
			Params: []Param{
				issueKeyParam("Issue key (e.g. 'PROJ-123')"),
				{Name: "fields", Type: TypeString, In: InQuery, Default: "summary,description,status,priority,assignee,issuetype,comment,attachment", Description: "Comma-separated list of fields to return"},
			},
		},
		{
			Name:        "search_issues",
			Description: "Search issues with JQL. Returns one page of results; use nextStartAt to fetch the next page. Uses startAt/total pagination (Jira Server/Data Center /search).",
			Method:      http.MethodGet,
			Path:        "/search",
			Shape:       ShapeSearch,
			Params: append([]Param{
				{Name: "jql", Type: TypeString, In: InQuery, Required: true, Description: "JQL query (e.g. 'project = PROJ AND status = Open')"},
				{Name: "fields", Type: TypeString, In: InQuery, Default: "summary,status,priority,assignee,issuetype", Description: "Comma-separated list of fields to return"},
			}, pageParams(50)...),
		},
		{
			Name:        "add_comment",
			Description: "Add a comment to a Jira issue.",
			Method:      http.MethodPost,
			Path:        "/issue/{issue_key}/comment",
			Shape:       ShapeComment,
			Params: []Param{
				issueKeyParam("Issue key to comment on"),
				{Name: "body", Type: TypeString, In: InBody, Target: "body", Required: true, Rich: true, Description: "Comment text"},
			},
		},
		{
			Name:        "update_issue",
			Description: "Update fields of an existing Jira issue.",
			Method:      http.MethodPut,
			Path:        "/issue/{issue_key}",
			Shape:       ShapeNoContent,
			Params: []Param{
				issueKeyParam("Issue key to update"),
				{Name: "fields", Type: TypeObject, In: InBody, Target: "fields", Required: true, Description: "Field values to set, keyed by field id (e.g. {\"summary\": \"New title\"})"},
				{Name: "notify_users", Type: TypeBoolean, In: InQuery, Target: "notifyUsers", Description: "Send notification emails (default: true)"},
			},
		},
		{
			Name:        "delete_issue",
			Description: "Delete a Jira issue or subtask.",
			Method:      http.MethodDelete,
			Path:        "/issue/{issue_key}",
			Shape:       ShapeNoContent,
			Params: []Param{
				issueKeyParam("Issue key to delete"),
				{Name: "delete_subtasks", Type: TypeBoolean, In: InQuery, Target: "deleteSubtasks", Description: "Also delete subtasks (required when the issue has any)"},
			},
		},
		{
			Name:        "get_transitions",
			Description: "List the workflow transitions currently available for an issue.",
			Method:      http.MethodGet,
			Path:        "/issue/{issue_key}/transitions",
			Shape:       ShapeTransitions,
			Params:      []Param{issueKeyParam("Issue key")},
		},
		{
			Name:        "transition_issue",
			Description: "Move an issue through its workflow using a transition id from get_transitions.",
			Method:      http.MethodPost,
			Path:        "/issue/{issue_key}/transitions",
			Shape:       ShapeNoContent,
			Params: []Param{
				issueKeyParam("Issue key to transition"),
				{Name: "transition_id", Type: TypeString, In: InBody, Target: "transition.id", Required: true, Pattern: `^[0-9]+$`, Description: "Transition id"},
			},
		},
		{
			Name:        "create_issue_link",
			Description: "Create a link between two issues.",
			Method:      http.MethodPost,
			Path:        "/issueLink",
			Shape:       ShapeNoContent,
			Params: []Param{
				{Name: "link_type", Type: TypeString, In: InBody, Target: "type.name", Required: true, Description: "Link type name (see list_link_types)"},
				{Name: "inward_issue", Type: TypeString, In: InBody, Target: "inwardIssue.key", Required: true, Pattern: issueKeyPattern, Description: "Inward issue key"},
				{Name: "outward_issue", Type: TypeString, In: InBody, Target: "outwardIssue.key", Required: true, Pattern: issueKeyPattern, Description: "Outward issue key"},
			},
		},
		{
			Name:        "add_attachment",
			Description: "Attach a file (base64 content) to an issue.",
			Method:      http.MethodPost,
			Path:        "/issue/{issue_key}/attachments",
			Shape:       ShapeAttachments,
			Params: []Param{
				issueKeyParam("Issue key to attach to"),
				{Name: "filename", Type: TypeString, In: InMultipart, Required: true, Description: "File name shown in Jira"},
				{Name: "content", Type: TypeString, In: InMultipart, Required: true, Base64: true, Description: "Base64-encoded file content"},
			},
		},
		{
			Name:        "get_user",
			Description: "Find a user's account id by email address or display name.",
			Method:      http.MethodGet,
			Path:        "/user/search",
			Shape:       ShapeUser,
			Params: []Param{
				{Name: "query", Type: TypeString, In: InQuery, Required: true, Description: "Email address or name to search for"},
			},
		},
		{
			Name:        "list_fields",
			Description: "List all system and custom fields.",
			Method:      http.MethodGet,
			Path:        "/field",
			Shape:       ShapeFields,
			Cacheable:   true,
		},
		{
			Name:        "list_issue_types",
			Description: "List all issue types.",
			Method:      http.MethodGet,
			Path:        "/issuetype",
			Shape:       ShapeIssueTypes,
			Cacheable:   true,
		},
		{
			Name:        "list_link_types",
			Description: "List all issue link types.",
			Method:      http.MethodGet,
			Path:        "/issueLinkType",
			Shape:       ShapeLinkTypes,
			Cacheable:   true,
		},
		{
			Name:        "get_boards",
			Description: "List agile boards, optionally filtered by project.",
			Method:      http.MethodGet,
			API:         APIAgile,
			Path:        "/board",
			Shape:       ShapeBoards,
			Params: append([]Param{
				{Name: "project", Type: TypeString, In: InQuery, Target: "projectKeyOrId", Pattern: projectKeyPattern, Description: "Project key to filter by"},
			}, pageParams(50)...),
		},
		{
			Name:        "get_board_sprints",
			Description: "List sprints of a board, optionally filtered by state.",
			Method:      http.MethodGet,
			API:         APIAgile,
			Path:        "/board/{board_id}/sprint",
			Shape:       ShapeSprints,
			Params: append([]Param{
				{Name: "board_id", Type: TypeInteger, In: InPath, Required: true, Minimum: intPtr(1), Description: "Board id"},
				{Name: "state", Type: TypeString, In: InQuery, Pattern: `^(active|future|closed)(,(active|future|closed))*$`, Description: "Sprint state filter: active, future, closed"},
			}, pageParams(50)...),
		},
		{
			Name:        "create_sprint",
			Description: "Create a new sprint on a board.",
			Method:      http.MethodPost,
			API:         APIAgile,
			Path:        "/sprint",
			Shape:       ShapeSprint,
			Params: []Param{
				{Name: "board_id", Type: TypeInteger, In: InBody, Target: "originBoardId", Required: true, Minimum: intPtr(1), Description: "Board to create the sprint on"},
				{Name: "name", Type: TypeString, In: InBody, Required: true, Description: "Sprint name"},
				{Name: "start_date", Type: TypeString, In: InBody, Target: "startDate", Pattern: datePattern, Description: "Start date (YYYY-MM-DD or ISO 8601)"},
				{Name: "end_date", Type: TypeString, In: InBody, Target: "endDate", Pattern: datePattern, Description: "End date (YYYY-MM-DD or ISO 8601)"},
				{Name: "goal", Type: TypeString, In: InBody, Description: "Sprint goal"},
			},
		},
		{
			Name:        "add_issues_to_sprint",
			Description: "Move one or more issues into a sprint.",
			Method:      http.MethodPost,
			API:         APIAgile,
			Path:        "/sprint/{sprint_id}/issue",
			Shape:       ShapeNoContent,
			Params: []Param{
				{Name: "sprint_id", Type: TypeInteger, In: InPath, Required: true, Minimum: intPtr(1), Description: "Sprint id"},
				{Name: "issue_keys", Type: TypeArray, In: InBody, Target: "issues", Required: true, Pattern: issueKeyPattern, Maximum: intPtr(50), Description: "Issue keys to move (at most 50)"},
			},
		},
	}
}
