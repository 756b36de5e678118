package jira

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// SearchResponse is the top-level container for Jira search results.
type SearchResponse struct {
	StartAt    int        `json:"startAt"`
	MaxResults int        `json:"maxResults"`
	Total      int        `json:"total"`
	Issues     []IssueDTO `json:"issues"`
}

// IssueDTO represents a single issue in the Jira search response.
type IssueDTO struct {
	Key       string        `json:"key"`
	Fields    FieldsDTO     `json:"fields"`
	Changelog *ChangelogDTO `json:"changelog,omitempty"`
}

// FieldsDTO contains the fields we care about. Custom fields are kept raw in Custom.
type FieldsDTO struct {
	Summary   string `json:"summary"`
	IssueType struct {
		Name    string `json:"name"`
		Subtask bool   `json:"subtask"`
	} `json:"issuetype"`
	Status struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		StatusCategory struct {
			Key string `json:"key"`
		} `json:"statusCategory"`
	} `json:"status"`
	ResolutionDate string `json:"resolutiondate"`
	Created        string `json:"created"`
	Updated        string `json:"updated"`

	Custom map[string]json.RawMessage `json:"-"`
}

func (f *FieldsDTO) UnmarshalJSON(data []byte) error {
	type plain FieldsDTO
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	*f = FieldsDTO(p)
	f.Custom = make(map[string]json.RawMessage)
	for name, raw := range all {
		if strings.HasPrefix(name, "customfield_") {
			f.Custom[name] = raw
		}
	}
	return nil
}

// StoryPoints reads a numeric custom field. Absent, null or non-numeric values give nil.
func (f FieldsDTO) StoryPoints(field string) *int {
	raw, ok := f.Custom[field]
	if !ok {
		return nil
	}
	var v *float64
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return nil
	}
	points := int(math.Trunc(*v))
	return &points
}

// ChangelogDTO contains historical transitions.
type ChangelogDTO struct {
	Histories []HistoryDTO `json:"histories"`
}

// HistoryDTO is a single entry in the changelog.
type HistoryDTO struct {
	ID      string    `json:"id"`
	Created string    `json:"created"`
	Items   []ItemDTO `json:"items"`
}

// ItemDTO is a single field change within a history entry.
type ItemDTO struct {
	Field      string `json:"field"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// SprintPage is one page of the agile sprint listing.
type SprintPage struct {
	MaxResults int         `json:"maxResults"`
	StartAt    int         `json:"startAt"`
	IsLast     bool        `json:"isLast"`
	Values     []SprintDTO `json:"values"`
}

// SprintDTO is a sprint as returned by the agile API.
type SprintDTO struct {
	ID            int    `json:"id"`
	State         string `json:"state"`
	Name          string `json:"name"`
	Goal          string `json:"goal"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	CompleteDate  string `json:"completeDate"`
	OriginBoardID int    `json:"originBoardId"`
}

var timeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// ParseTime accepts the Jira REST format as well as the ISO form used by the agile API.
// Values without an offset are read as UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized Jira time %q", s)
}
