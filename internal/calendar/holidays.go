package calendar

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Date is a calendar date read from YAML as YYYY-MM-DD, quoted or not.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	t, err := time.Parse(dateKey, value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid date %q, expected YYYY-MM-DD", value.Line, value.Value)
	}
	d.Time = t
	return nil
}

type holidayFile struct {
	Holidays []struct {
		Date Date   `yaml:"date"`
		Name string `yaml:"name"`
	} `yaml:"holidays"`
}

// ParseHolidays reads a document of the form:
//
//	holidays:
//	  - date: 2025-12-24
//	    name: Christmas Eve
func ParseHolidays(data []byte) ([]Holiday, error) {
	var doc holidayFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse holidays: %w", err)
	}
	out := make([]Holiday, 0, len(doc.Holidays))
	for _, h := range doc.Holidays {
		name := h.Name
		if name == "" {
			name = "Company holiday"
		}
		out = append(out, Holiday{Date: h.Date.Time, Name: name})
	}
	return out, nil
}

// LoadHolidays reads extra holidays from a YAML file.
func LoadHolidays(path string) ([]Holiday, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holidays file: %w", err)
	}
	return ParseHolidays(data)
}
