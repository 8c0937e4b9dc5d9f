package models

// ValidationError reports a required input field that is missing or an
// enum field holding a value outside its set.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return "missing required field: " + e.Field
	}
	return e.Field + ": " + e.Reason
}

func missing(field string) error {
	return &ValidationError{Field: field}
}

// NewIssue is the input for creating an issue. Status and assignee are
// not accepted: new issues always start OPEN and unassigned.
type NewIssue struct {
	Title       string
	Description string
	Platform    Platform
	Severity    Severity
}

// Validate checks that every field is present and enum values are known.
func (n NewIssue) Validate() error {
	if n.Title == "" {
		return missing("title")
	}
	if n.Description == "" {
		return missing("description")
	}
	if n.Platform == "" {
		return missing("platform")
	}
	if !n.Platform.Valid() {
		return &ValidationError{Field: "platform", Reason: "unknown value " + string(n.Platform)}
	}
	if n.Severity == "" {
		return missing("severity")
	}
	if !n.Severity.Valid() {
		return &ValidationError{Field: "severity", Reason: "unknown value " + string(n.Severity)}
	}
	return nil
}

// IssueUpdate is a partial update. A nil field leaves the stored value
// unchanged.
type IssueUpdate struct {
	Title       *string
	Description *string
	Platform    *Platform
	Status      *Status
	Severity    *Severity
	Assignee    *string
}

// IsEmpty reports whether no field is set.
func (u IssueUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Platform == nil &&
		u.Status == nil && u.Severity == nil && u.Assignee == nil
}

// Validate checks the enum values of the supplied fields.
func (u IssueUpdate) Validate() error {
	if u.Platform != nil && !u.Platform.Valid() {
		return &ValidationError{Field: "platform", Reason: "unknown value " + string(*u.Platform)}
	}
	if u.Status != nil && !u.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "unknown value " + string(*u.Status)}
	}
	if u.Severity != nil && !u.Severity.Valid() {
		return &ValidationError{Field: "severity", Reason: "unknown value " + string(*u.Severity)}
	}
	return nil
}

// Apply copies the supplied fields onto issue.
func (u IssueUpdate) Apply(issue *Issue) {
	if u.Title != nil {
		issue.Title = *u.Title
	}
	if u.Description != nil {
		issue.Description = *u.Description
	}
	if u.Platform != nil {
		issue.Platform = *u.Platform
	}
	if u.Status != nil {
		issue.Status = *u.Status
	}
	if u.Severity != nil {
		issue.Severity = *u.Severity
	}
	if u.Assignee != nil {
		a := *u.Assignee
		issue.Assignee = &a
	}
}

// NewComment is the input for adding a comment to an issue.
type NewComment struct {
	Text   string
	Author string
}

// Validate reports empty text or author. The store accepts both as given;
// front-ends that collect them interactively call this first.
func (c NewComment) Validate() error {
	if c.Text == "" {
		return missing("text")
	}
	if c.Author == "" {
		return missing("author")
	}
	return nil
}
