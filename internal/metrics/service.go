// Package metrics turns stored tickets and sprints into per-team metric series.
package metrics

import (
	"context"
	"errors"
	"fmt"

	"streamline/internal/flow"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// ErrTeamRequired is returned when a metric is requested without a team.
var ErrTeamRequired = errors.New("team is required")

// TicketRepository loads the resolved tickets of a team.
type TicketRepository interface {
	FindTicketsByTeam(ctx context.Context, team string) ([]flow.Ticket, error)
}

// SprintRepository loads the closed sprints of a team with their tickets.
type SprintRepository interface {
	FindSprintsByTeam(ctx context.Context, team string) ([]flow.Sprint, error)
}

// Service computes the published flow metrics.
type Service struct {
	tickets TicketRepository
	sprints SprintRepository

	cycleTime  *flow.CycleTimeCalculator
	leadTime   *flow.LeadTimeCalculator
	throughput *flow.ThroughputCalculator
	velocity   *flow.VelocityCalculator
}

func NewService(tickets TicketRepository, sprints SprintRepository, workingTime flow.WorkingTime, sprintClose flow.SprintClose) *Service {
	return &Service{
		tickets:    tickets,
		sprints:    sprints,
		cycleTime:  flow.NewCycleTimeCalculator(workingTime),
		leadTime:   flow.NewLeadTimeCalculator(workingTime),
		throughput: flow.NewThroughputCalculator(sprintClose),
		velocity:   flow.NewVelocityCalculator(sprintClose),
	}
}

// Report computes the metric of the given kind.
func (s *Service) Report(ctx context.Context, kind Kind, team string) (Report, error) {
	switch kind {
	case CycleTime:
		return s.CycleTimes(ctx, team)
	case SprintCycleTime:
		return s.SprintCycleTimes(ctx, team)
	case LeadTime:
		return s.LeadTimes(ctx, team)
	case Throughput:
		return s.Throughput(ctx, team)
	case Velocity:
		return s.Velocity(ctx, team)
	default:
		return nil, fmt.Errorf("unknown metric %q", kind)
	}
}

// CycleTimes returns the cycle time of every resolved ticket of the team.
func (s *Service) CycleTimes(ctx context.Context, team string) (Response[CycleTimeDataPoint], error) {
	tickets, err := s.loadTickets(ctx, team)
	if err != nil {
		return Response[CycleTimeDataPoint]{}, err
	}

	datapoints := make([]CycleTimeDataPoint, 0, len(tickets))
	for _, t := range tickets {
		duration, err := s.cycleTime.Calculate(t)
		if err != nil {
			skip(team, t, CycleTime, err)
			continue
		}
		datapoints = append(datapoints, CycleTimeDataPoint{
			Key:         t.ID,
			Duration:    duration,
			ResolvedAt:  t.ResolvedAt.Unix(),
			StoryPoints: t.StoryPoints,
		})
	}

	return Response[CycleTimeDataPoint]{
		Datapoints: datapoints,
		Meta: Meta{
			Metric:      "Cycle Time",
			Description: "Each item represents total working time a ticket spent in progress until completion.",
			Unit:        UnitDays,
			Team:        team,
			Summary:     summarize(lo.Map(datapoints, func(d CycleTimeDataPoint, _ int) float64 { return d.Duration })),
		},
	}, nil
}

// SprintCycleTimes returns the cycle time of the tickets started within each sprint.
func (s *Service) SprintCycleTimes(ctx context.Context, team string) (Response[SprintCycleTimeDataPoint], error) {
	sprints, err := s.loadSprints(ctx, team)
	if err != nil {
		return Response[SprintCycleTimeDataPoint]{}, err
	}

	var datapoints []SprintCycleTimeDataPoint
	for _, sprint := range sprints {
		for _, t := range sprint.StartedWithinSprint() {
			if t.ResolvedAt.IsZero() {
				continue
			}
			duration, err := s.cycleTime.Calculate(t)
			if err != nil {
				skip(team, t, SprintCycleTime, err)
				continue
			}
			datapoints = append(datapoints, SprintCycleTimeDataPoint{
				Key:        t.ID,
				Duration:   duration,
				ResolvedAt: t.ResolvedAt.Unix(),
				Sprint:     sprint.Name,
			})
		}
	}
	if datapoints == nil {
		datapoints = []SprintCycleTimeDataPoint{}
	}

	return Response[SprintCycleTimeDataPoint]{
		Datapoints: datapoints,
		Meta: Meta{
			Metric:      "Sprint Cycle Time",
			Description: "Each item represents total working time a ticket started within a sprint spent in progress until completion.",
			Unit:        UnitDays,
			Team:        team,
			Summary:     summarize(lo.Map(datapoints, func(d SprintCycleTimeDataPoint, _ int) float64 { return d.Duration })),
		},
	}, nil
}

// LeadTimes returns the lead time of every resolved ticket of the team.
func (s *Service) LeadTimes(ctx context.Context, team string) (Response[LeadTimeDataPoint], error) {
	tickets, err := s.loadTickets(ctx, team)
	if err != nil {
		return Response[LeadTimeDataPoint]{}, err
	}

	datapoints := make([]LeadTimeDataPoint, 0, len(tickets))
	for _, t := range tickets {
		duration, err := s.leadTime.Calculate(t)
		if err != nil {
			skip(team, t, LeadTime, err)
			continue
		}
		datapoints = append(datapoints, LeadTimeDataPoint{
			Key:         t.ID,
			Duration:    duration,
			ResolvedAt:  t.ResolvedAt.Unix(),
			StoryPoints: t.StoryPoints,
		})
	}

	return Response[LeadTimeDataPoint]{
		Datapoints: datapoints,
		Meta: Meta{
			Metric:      "Lead Time",
			Description: "Each item represents total working time a ticket spent from creation to completion.",
			Unit:        UnitDays,
			Team:        team,
			Summary:     summarize(lo.Map(datapoints, func(d LeadTimeDataPoint, _ int) float64 { return d.Duration })),
		},
	}, nil
}

// Throughput returns the completed and residual ticket counts of each sprint.
func (s *Service) Throughput(ctx context.Context, team string) (Response[ThroughputDataPoint], error) {
	sprints, err := s.loadSprints(ctx, team)
	if err != nil {
		return Response[ThroughputDataPoint]{}, err
	}

	datapoints := lo.Map(sprints, func(sprint flow.Sprint, _ int) ThroughputDataPoint {
		completed := s.throughput.Calculate(sprint)
		return ThroughputDataPoint{
			Sprint:    sprint.Name,
			Completed: completed,
			Residuals: len(sprint.Tickets) - completed,
		}
	})

	return Response[ThroughputDataPoint]{
		Datapoints: datapoints,
		Meta: Meta{
			Metric:      "Sprint Throughput",
			Description: "Each item represents the number of tickets completed and not completed during a given sprint.",
			Unit:        UnitNone,
			Team:        team,
		},
	}, nil
}

// Velocity returns the completed and residual story points of each sprint.
func (s *Service) Velocity(ctx context.Context, team string) (Response[VelocityDataPoint], error) {
	sprints, err := s.loadSprints(ctx, team)
	if err != nil {
		return Response[VelocityDataPoint]{}, err
	}

	datapoints := lo.Map(sprints, func(sprint flow.Sprint, _ int) VelocityDataPoint {
		completed := s.velocity.Calculate(sprint)
		return VelocityDataPoint{
			Sprint:               sprint.Name,
			StoryPointsCompleted: completed,
			StoryPointsResidual:  sprint.TotalPoints() - completed,
		}
	})

	return Response[VelocityDataPoint]{
		Datapoints: datapoints,
		Meta: Meta{
			Metric:      "Sprint Velocity",
			Description: "Each item represents the story points completed and not completed during a given sprint.",
			Unit:        UnitNone,
			Team:        team,
		},
	}, nil
}

func (s *Service) loadTickets(ctx context.Context, team string) ([]flow.Ticket, error) {
	if team == "" {
		return nil, ErrTeamRequired
	}
	tickets, err := s.tickets.FindTicketsByTeam(ctx, team)
	if err != nil {
		return nil, fmt.Errorf("load tickets of team %s: %w", team, err)
	}
	return tickets, nil
}

func (s *Service) loadSprints(ctx context.Context, team string) ([]flow.Sprint, error) {
	if team == "" {
		return nil, ErrTeamRequired
	}
	sprints, err := s.sprints.FindSprintsByTeam(ctx, team)
	if err != nil {
		return nil, fmt.Errorf("load sprints of team %s: %w", team, err)
	}
	return sprints, nil
}

func skip(team string, t flow.Ticket, kind Kind, err error) {
	log.Warn().
		Str("team", team).
		Str("key", t.ID).
		Str("metric", string(kind)).
		Err(err).
		Msg("Skipping ticket")
}

func summarize(durations []float64) *Summary {
	if len(durations) == 0 {
		return nil
	}
	return &Summary{
		Count:  len(durations),
		Median: flow.Median(durations),
		P85:    flow.Percentile(durations, 0.85),
	}
}
