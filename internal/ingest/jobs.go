// Package ingest synchronizes Jira sprints and tickets into the store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"streamline/internal/flow"
	"streamline/internal/history"
	"streamline/internal/jira"
	"streamline/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	SprintJobName = "jira_sprints"
	TicketJobName = "jira_tickets"

	defaultPageSize    = 50
	defaultConcurrency = 4
)

// Repository is the part of the store the jobs write to.
type Repository interface {
	SaveTicket(ctx context.Context, t flow.Ticket) error
	SaveSprint(ctx context.Context, s flow.Sprint) error
	FindJob(ctx context.Context, name, team string) (store.Job, error)
	SaveJob(ctx context.Context, job store.Job) error
}

// Options configure both jobs for one team.
type Options struct {
	Team             string
	BoardID          int
	SprintOffset     int
	Scope            jira.Scope
	Resolver         *history.Resolver
	Finished         string
	Location         *time.Location
	StoryPointsField string
	Concurrency      int
	PageSize         int
}

// Result summarizes a job run.
type Result struct {
	Job     string `json:"job"`
	RunID   string `json:"run_id"`
	Saved   int    `json:"saved"`
	Skipped int    `json:"skipped"`
}

// Job is a resumable synchronization step.
type Job interface {
	Name() string
	Run(ctx context.Context) (Result, error)
}

type base struct {
	client jira.Client
	repo   Repository
	opts   Options
	now    func() time.Time
}

func newBase(client jira.Client, repo Repository, opts Options) base {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	return base{client: client, repo: repo, opts: opts, now: time.Now}
}

// start loads the job's last record, or a fresh one, and a logger tagged with a new run ID.
func (b base) start(ctx context.Context, name string) (store.Job, zerolog.Logger, error) {
	runID := uuid.NewString()
	logger := log.With().Str("job", name).Str("run", runID).Str("team", b.opts.Team).Logger()

	job, err := b.repo.FindJob(ctx, name, b.opts.Team)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return job, logger, err
	}
	job.Name, job.Team, job.RunID = name, b.opts.Team, runID
	logger.Info().Msg("Starting synchronization")
	return job, logger, nil
}

// SprintJob synchronizes the board's closed sprints and their issue keys.
type SprintJob struct {
	base
}

func NewSprintJob(client jira.Client, repo Repository, opts Options) *SprintJob {
	return &SprintJob{base: newBase(client, repo, opts)}
}

func (j *SprintJob) Name() string { return SprintJobName }

// Run fetches closed sprints from the stored offset onwards and advances the offset.
func (j *SprintJob) Run(ctx context.Context) (Result, error) {
	job, logger, err := j.start(ctx, SprintJobName)
	if err != nil {
		return Result{}, err
	}
	result := Result{Job: SprintJobName, RunID: job.RunID}

	offset := j.opts.SprintOffset
	if job.Metadata.SprintOffset != nil {
		offset = *job.Metadata.SprintOffset
	}

	sprints, err := j.client.GetSprints(ctx, j.opts.BoardID, offset, "closed")
	if err != nil {
		return result, fmt.Errorf("fetch sprints: %w", err)
	}
	logger.Info().Int("offset", offset).Int("count", len(sprints)).Msg("Found sprints")

	keys := make([][]string, len(sprints))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.opts.Concurrency)
	for i, sp := range sprints {
		g.Go(func() error {
			found, err := j.client.SearchIssueKeys(gctx, j.opts.Scope.SprintIssuesJQL(sp.ID))
			if err != nil {
				return fmt.Errorf("issues of sprint %d: %w", sp.ID, err)
			}
			keys[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	for i, sp := range sprints {
		sprint, err := jira.MapSprint(sp, j.opts.Team, keys[i], j.opts.Location)
		if err != nil {
			logger.Warn().Int("sprint", sp.ID).Str("name", sp.Name).Err(err).Msg("Skipping sprint")
			result.Skipped++
			continue
		}
		if err := j.repo.SaveSprint(ctx, sprint); err != nil {
			return result, fmt.Errorf("save sprint %d: %w", sp.ID, err)
		}
		result.Saved++
	}

	next := offset + len(sprints)
	job.Metadata.SprintOffset = &next
	job.ExecutedAt = j.now().UTC()
	if err := j.repo.SaveJob(ctx, job); err != nil {
		return result, fmt.Errorf("save job: %w", err)
	}

	logger.Info().Int("saved", result.Saved).Int("skipped", result.Skipped).Int("next_offset", next).Msg("Sprints synchronized")
	return result, nil
}

// TicketJob synchronizes tickets finished since the previous run.
type TicketJob struct {
	base
}

func NewTicketJob(client jira.Client, repo Repository, opts Options) *TicketJob {
	return &TicketJob{base: newBase(client, repo, opts)}
}

func (j *TicketJob) Name() string { return TicketJobName }

// Run fetches the scope's tickets moved to the finished status after the last run,
// resolves their start and finish and saves those that have both.
func (j *TicketJob) Run(ctx context.Context) (Result, error) {
	job, logger, err := j.start(ctx, TicketJobName)
	if err != nil {
		return Result{}, err
	}
	result := Result{Job: TicketJobName, RunID: job.RunID}
	startedAt := j.now().UTC()

	var doneAfter time.Time
	if job.Metadata.TicketsDoneAt != nil {
		doneAfter = *job.Metadata.TicketsDoneAt
	}

	sprints, err := j.client.GetSprints(ctx, j.opts.BoardID, j.opts.SprintOffset, "closed")
	if err != nil {
		return result, fmt.Errorf("fetch sprints: %w", err)
	}
	if len(sprints) == 0 {
		logger.Info().Msg("No closed sprints, nothing to synchronize")
		return result, nil
	}
	ids := lo.Map(sprints, func(sp jira.SprintDTO, _ int) int { return sp.ID })
	jql := j.opts.Scope.DoneIssuesJQL(ids, j.opts.Finished, doneAfter)

	mapOpts := jira.MapOptions{
		Team:             j.opts.Team,
		Resolver:         j.opts.Resolver,
		Location:         j.opts.Location,
		StoryPointsField: j.opts.StoryPointsField,
	}

	for startAt := 0; ; {
		page, err := j.client.SearchIssuesWithHistory(ctx, jql, startAt, j.opts.PageSize)
		if err != nil {
			return result, fmt.Errorf("search tickets: %w", err)
		}

		for _, issue := range page.Issues {
			ticket, err := jira.MapTicket(issue, mapOpts)
			if err != nil {
				logger.Warn().Str("key", issue.Key).Str("reason", err.Error()).Msg("Skipping ticket")
				result.Skipped++
				continue
			}
			if err := j.repo.SaveTicket(ctx, ticket); err != nil {
				return result, fmt.Errorf("save ticket %s: %w", ticket.ID, err)
			}
			result.Saved++
		}

		startAt += len(page.Issues)
		if len(page.Issues) == 0 || startAt >= page.Total {
			break
		}
	}

	job.Metadata.TicketsDoneAt = &startedAt
	job.ExecutedAt = startedAt
	if err := j.repo.SaveJob(ctx, job); err != nil {
		return result, fmt.Errorf("save job: %w", err)
	}

	logger.Info().Int("saved", result.Saved).Int("skipped", result.Skipped).Msg("Tickets synchronized")
	return result, nil
}

// RunAll runs the jobs in order and stops at the first failure.
func RunAll(ctx context.Context, jobs ...Job) ([]Result, error) {
	results := make([]Result, 0, len(jobs))
	for _, job := range jobs {
		res, err := job.Run(ctx)
		results = append(results, res)
		if err != nil {
			return results, fmt.Errorf("%s: %w", job.Name(), err)
		}
	}
	return results, nil
}

// Select picks jobs by target: "" or "all" selects every job, otherwise the
// target must match a job name with or without its "jira_" prefix.
func Select(target string, jobs ...Job) ([]Job, error) {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" || target == "all" {
		return jobs, nil
	}
	for _, job := range jobs {
		if job.Name() == target || strings.TrimPrefix(job.Name(), "jira_") == target {
			return []Job{job}, nil
		}
	}
	return nil, fmt.Errorf("unknown sync target %q", target)
}
