package jira

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Scope narrows queries to one team's work in one project.
type Scope struct {
	Project    string
	TeamField  string
	Team       string
	IssueTypes []string
}

func (s Scope) clauses() []string {
	clauses := []string{"project = " + quote(s.Project)}
	if s.Team != "" {
		field := s.TeamField
		if field == "" {
			field = "Teams"
		}
		clauses = append(clauses, fmt.Sprintf("%s = %s", field, quote(s.Team)))
	}
	if len(s.IssueTypes) > 0 {
		clauses = append(clauses, fmt.Sprintf("issuetype IN (%s)", strings.Join(lo.Map(s.IssueTypes, func(t string, _ int) string { return quote(t) }), ", ")))
	}
	return clauses
}

// SprintIssuesJQL selects the scope's issues of one sprint.
func (s Scope) SprintIssuesJQL(sprintID int) string {
	clauses := append([]string{"Sprint = " + strconv.Itoa(sprintID)}, s.clauses()...)
	return strings.Join(clauses, " AND ")
}

// DoneIssuesJQL selects the scope's issues of the given sprints that moved to the finished
// status after doneAfter. A zero doneAfter selects them all.
func (s Scope) DoneIssuesJQL(sprintIDs []int, finished string, doneAfter time.Time) string {
	clauses := s.clauses()
	if len(sprintIDs) > 0 {
		ids := lo.Map(sprintIDs, func(id int, _ int) string { return strconv.Itoa(id) })
		clauses = append(clauses, fmt.Sprintf("Sprint IN (%s)", strings.Join(ids, ", ")))
	}
	if !doneAfter.IsZero() {
		clauses = append(clauses, fmt.Sprintf("status CHANGED TO %s AFTER %s", quote(finished), quote(doneAfter.Format("2006-01-02"))))
	}
	return strings.Join(clauses, " AND ") + " ORDER BY created ASC"
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
