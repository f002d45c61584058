// Package resume turns extracted résumé text into structured employment
// records.
package resume

import (
	"strings"

	"github.com/spigell/cv-verifier/internal/dates"
)

// UnknownCompany is used when no company text precedes the title keyword.
const UnknownCompany = "Unknown"

// Role is one declared employment period.
type Role struct {
	Title    string     `json:"title"`
	Company  string     `json:"company"`
	Start    dates.Date `json:"start"`
	End      dates.Date `json:"end"`
	Location string     `json:"location"`
	FullTime bool       `json:"full_time"`
	// Description is the free text compared against ExpectedKeywords.
	Description      string `json:"description"`
	ExpectedKeywords string `json:"expected_keywords"`
}

// Label is a short human readable role identifier for logs.
func (r Role) Label() string {
	if r.Company == "" || r.Company == UnknownCompany {
		return r.Title
	}
	return r.Title + " @ " + r.Company
}

// Document is the structured form of a résumé.
type Document struct {
	Roles          []Role   `json:"roles"`
	RepositoryURLs []string `json:"repository_urls"`
	ProfileURL     string   `json:"profile_url"`
}

// Empty returns a document with no roles, repositories or profile.
func Empty() *Document {
	return &Document{Roles: []Role{}, RepositoryURLs: []string{}}
}

// FirstTitle returns the title of the first declared role, if any.
func (d *Document) FirstTitle() string {
	if d == nil || len(d.Roles) == 0 {
		return ""
	}
	return d.Roles[0].Title
}

// RepositoryID reduces a repository URL such as
// https://github.com/owner/name.git to "owner/name". ok is false when the
// URL does not point at a repository.
func RepositoryID(url string) (id string, ok bool) {
	path := url
	if idx := strings.Index(path, "github.com/"); idx != -1 {
		path = path[idx+len("github.com/"):]
	}

	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(segments) < 2 {
		return "", false
	}

	owner := strings.TrimSpace(segments[0])
	name := strings.TrimSuffix(strings.TrimSpace(segments[1]), ".git")
	if owner == "" || name == "" {
		return "", false
	}

	return owner + "/" + name, true
}
