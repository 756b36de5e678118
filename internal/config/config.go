package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"streamline/internal/calendar"
	"streamline/internal/flow"
	"streamline/internal/history"
	"streamline/internal/ingest"
	"streamline/internal/jira"
	"streamline/internal/metrics"
	"streamline/internal/worktime"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// App holds process-wide settings.
type App struct {
	Region         string        `envconfig:"STREAMLINE_REGION" default:"DE" validate:"required"`
	Timezone       string        `envconfig:"STREAMLINE_TIMEZONE" default:"Europe/Berlin" validate:"required"`
	HolidaysFile   string        `envconfig:"STREAMLINE_HOLIDAYS_FILE"`
	DataPath       string        `envconfig:"DATA_PATH"`
	HTTPAddr       string        `envconfig:"HTTP_ADDR" default:"127.0.0.1:8080" validate:"required,hostname_port"`
	RequestTimeout time.Duration `envconfig:"HTTP_REQUEST_TIMEOUT" default:"30s" validate:"gte=0"`
	MermaidCharts  bool          `envconfig:"ENABLE_MERMAID_CHARTS" default:"false"`
}

// Workflow describes the working day and the team's status workflow.
type Workflow struct {
	StartsAt        worktime.TimeOfDay `envconfig:"WORKDAY_STARTS_AT" default:"09:00"`
	EndsAt          worktime.TimeOfDay `envconfig:"WORKDAY_ENDS_AT" default:"17:00"`
	DurationHours   float64            `envconfig:"WORKDAY_DURATION" default:"8" validate:"gt=0,lte=24"`
	SprintCloseTime string             `envconfig:"SPRINT_CLOSE_TIME" validate:"omitempty,datetime=15:04"`
	Started         []string           `envconfig:"STATUS_STARTED" default:"In Progress" validate:"min=1,dive,required"`
	Finished        []string           `envconfig:"STATUS_FINISHED" default:"Done" validate:"min=1,dive,required"`
}

// Jira holds the connection and scope of the synchronization. It is only
// validated when a command talks to Jira.
type Jira struct {
	URL                 string   `envconfig:"JIRA_URL" validate:"required,url"`
	Token               string   `envconfig:"JIRA_TOKEN" validate:"required_without=SessionID"`
	XsrfToken           string   `envconfig:"JIRA_XSRF_TOKEN"`
	SessionID           string   `envconfig:"JIRA_SESSION_ID"`
	RememberMe          string   `envconfig:"JIRA_REMEMBERME_COOKIE"`
	GCILB               string   `envconfig:"JIRA_GCILB"`
	GCLB                string   `envconfig:"JIRA_GCLB"`
	RequestDelaySeconds int      `envconfig:"JIRA_REQUEST_DELAY_SECONDS" default:"10" validate:"gte=0"`
	Team                string   `envconfig:"JIRA_TEAM" validate:"required"`
	Project             string   `envconfig:"JIRA_PROJECT" validate:"required"`
	BoardID             int      `envconfig:"JIRA_BOARD_ID" validate:"required,gt=0"`
	SprintOffset        int      `envconfig:"JIRA_SPRINT_OFFSET" validate:"gte=0"`
	IssueTypes          []string `envconfig:"JIRA_ISSUE_TYPES" default:"Story,Bug"`
	StoryPointsField    string   `envconfig:"JIRA_STORY_POINTS_FIELD" default:"customfield_10002" validate:"required,startswith=customfield_"`
	TeamField           string   `envconfig:"JIRA_TEAM_FIELD" default:"Teams" validate:"required"`
	SyncConcurrency     int      `envconfig:"JIRA_SYNC_CONCURRENCY" default:"4" validate:"gte=1,lte=32"`
}

// Config holds the complete application configuration.
type Config struct {
	App      App
	Workflow Workflow
	Jira     Jira
	LogDir   string
}

var validate = validator.New()

// Load loads the configuration from .env files and environment variables.
func Load() (*Config, error) {
	// The executable's directory wins over the working directory: godotenv
	// never overrides a variable that is already set.
	exeDir := ""
	if exePath, err := os.Executable(); err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables")
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if cfg.App.DataPath == "" {
		cfg.App.DataPath = "."
		if exeDir != "" {
			cfg.App.DataPath = exeDir
		}
	}
	cfg.LogDir = filepath.Join(cfg.App.DataPath, "logs")
	return cfg, nil
}

// FromEnv decodes and validates the configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	sections := []struct {
		name   string
		target any
	}{
		{"app", &cfg.App},
		{"workflow", &cfg.Workflow},
		{"jira", &cfg.Jira},
	}
	for _, s := range sections {
		if err := envconfig.Process("", s.target); err != nil {
			return nil, fmt.Errorf("%s config: %w", s.name, err)
		}
	}

	cfg.Jira.Team = metrics.NormalizeTeam(cfg.Jira.Team)
	cfg.Workflow.Started = trimAll(cfg.Workflow.Started)
	cfg.Workflow.Finished = trimAll(cfg.Workflow.Finished)
	cfg.Jira.IssueTypes = trimAll(cfg.Jira.IssueTypes)

	if err := validate.Struct(cfg.App); err != nil {
		return nil, fmt.Errorf("app config: %w", err)
	}
	if err := validate.Struct(cfg.Workflow); err != nil {
		return nil, fmt.Errorf("workflow config: %w", err)
	}
	if !cfg.Workflow.StartsAt.Before(cfg.Workflow.EndsAt) {
		return nil, fmt.Errorf("workflow config: workday starts at %s, not before it ends at %s: %w",
			cfg.Workflow.StartsAt, cfg.Workflow.EndsAt, worktime.ErrInvalidConfiguration)
	}
	return cfg, nil
}

// ValidateJira checks the settings a Jira synchronization needs.
func (c *Config) ValidateJira() error {
	if err := validate.Struct(c.Jira); err != nil {
		return fmt.Errorf("jira config: %w", err)
	}
	return nil
}

// DatabasePath is the SQLite file under the data path.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.App.DataPath, "streamline.db")
}

// Location is the time zone in which working days are evaluated.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.App.Timezone, err)
	}
	return loc, nil
}

// Calendar builds the region calendar including company holidays from the holidays file.
func (c *Config) Calendar() (*calendar.Calendar, error) {
	var extra []calendar.Holiday
	if c.App.HolidaysFile != "" {
		holidays, err := calendar.LoadHolidays(c.App.HolidaysFile)
		if err != nil {
			return nil, err
		}
		extra = holidays
	}
	return calendar.ForRegion(c.App.Region, extra...)
}

// Window is the configured working-hours window.
func (w Workflow) Window() (worktime.Window, error) {
	return worktime.NewWindow(w.StartsAt, w.EndsAt, time.Duration(w.DurationHours*float64(time.Hour)))
}

// SprintClose applies the optional sprint close time of day.
func (w Workflow) SprintClose() (flow.SprintClose, error) {
	if w.SprintCloseTime == "" {
		return flow.NewSprintClose(nil), nil
	}
	tod, err := worktime.ParseTimeOfDay(w.SprintCloseTime)
	if err != nil {
		return flow.SprintClose{}, err
	}
	return flow.NewSprintClose(&tod), nil
}

// Resolver resolves start and finish from the configured status labels.
func (w Workflow) Resolver() *history.Resolver {
	return history.NewResolver(w.Started, w.Finished)
}

// Calculator combines the calendar and the working-hours window.
func (c *Config) Calculator() (*worktime.Calculator, error) {
	cal, err := c.Calendar()
	if err != nil {
		return nil, err
	}
	window, err := c.Workflow.Window()
	if err != nil {
		return nil, err
	}
	return worktime.NewCalculator(cal, window), nil
}

// Client returns the Jira client settings.
func (j Jira) Client() jira.Config {
	return jira.Config{
		BaseURL:      j.URL,
		Token:        j.Token,
		XsrfToken:    j.XsrfToken,
		SessionID:    j.SessionID,
		RememberMe:   j.RememberMe,
		GCILB:        j.GCILB,
		GCLB:         j.GCLB,
		RequestDelay: time.Duration(j.RequestDelaySeconds) * time.Second,
		ExtraFields:  []string{j.StoryPointsField},
	}
}

// IngestOptions returns the options shared by the synchronization jobs.
func (c *Config) IngestOptions(loc *time.Location) ingest.Options {
	return ingest.Options{
		Team:         c.Jira.Team,
		BoardID:      c.Jira.BoardID,
		SprintOffset: c.Jira.SprintOffset,
		Scope: jira.Scope{
			Project:    c.Jira.Project,
			TeamField:  c.Jira.TeamField,
			Team:       c.Jira.Team,
			IssueTypes: c.Jira.IssueTypes,
		},
		Resolver:         c.Workflow.Resolver(),
		Finished:         c.Workflow.Finished[0],
		Location:         loc,
		StoryPointsField: c.Jira.StoryPointsField,
		Concurrency:      c.Jira.SyncConcurrency,
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
