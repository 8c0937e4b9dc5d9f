package models

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the ISO-8601 layout used for every timestamp on the wire.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Platform identifies the streaming service an issue was reported against.
type Platform string

const (
	PlatformDisneyPlus Platform = "DISNEY_PLUS"
	PlatformESPNPlus   Platform = "ESPN_PLUS"
	PlatformHulu       Platform = "HULU"
	PlatformStarPlus   Platform = "STAR_PLUS"
)

// Platforms lists every platform in schema order.
var Platforms = []Platform{PlatformDisneyPlus, PlatformESPNPlus, PlatformHulu, PlatformStarPlus}

// Status represents the state of an issue.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
)

// Statuses lists every status in schema order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

// Severity represents how badly an issue affects viewers.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Severities lists every severity in schema order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	for _, v := range Platforms {
		if p == v {
			return true
		}
	}
	return false
}

// Label returns the display name of the platform.
func (p Platform) Label() string {
	switch p {
	case PlatformDisneyPlus:
		return "Disney+"
	case PlatformESPNPlus:
		return "ESPN+"
	case PlatformHulu:
		return "Hulu"
	case PlatformStarPlus:
		return "Star+"
	default:
		return string(p)
	}
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns the display name of the status.
func (s Status) Label() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusInProgress:
		return "In progress"
	case StatusResolved:
		return "Resolved"
	case StatusClosed:
		return "Closed"
	default:
		return string(s)
	}
}

func (s Severity) Valid() bool {
	for _, v := range Severities {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns the display name of the severity.
func (s Severity) Label() string {
	if !s.Valid() {
		return string(s)
	}
	lower := strings.ToLower(string(s))
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// ParsePlatform accepts a platform name in any case.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid platform %q (want one of %s)", s, join(Platforms))
	}
	return p, nil
}

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q (want one of %s)", s, join(Statuses))
	}
	return st, nil
}

// ParseSeverity accepts a severity name in any case.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if !sev.Valid() {
		return "", fmt.Errorf("invalid severity %q (want one of %s)", s, join(Severities))
	}
	return sev, nil
}

func join[T ~string](vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// Issue represents a tracked problem report tied to a streaming platform.
type Issue struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Platform    Platform   `json:"platform" yaml:"platform"`
	Status      Status     `json:"status" yaml:"status"`
	Severity    Severity   `json:"severity" yaml:"severity"`
	Assignee    *string    `json:"assignee" yaml:"assignee"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" yaml:"updatedAt"`
	Comments    []*Comment `json:"comments" yaml:"comments"`
}

// Comment is a timestamped note attached to an issue.
type Comment struct {
	ID        string    `json:"id" yaml:"id"`
	Text      string    `json:"text" yaml:"text"`
	Author    string    `json:"author" yaml:"author"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// AssigneeName returns the assignee or "" when unassigned.
func (i *Issue) AssigneeName() string {
	if i.Assignee == nil {
		return ""
	}
	return *i.Assignee
}

// Clone returns a deep copy of the issue.
func (i *Issue) Clone() *Issue {
	if i == nil {
		return nil
	}
	c := *i
	if i.Assignee != nil {
		a := *i.Assignee
		c.Assignee = &a
	}
	c.Comments = make([]*Comment, len(i.Comments))
	for idx, cm := range i.Comments {
		cc := *cm
		c.Comments[idx] = &cc
	}
	return &c
}

// FormatTime renders t the way every API timestamp is rendered.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
