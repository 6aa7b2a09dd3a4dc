package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/tracker"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Authorization metrics
	AuthDenialsTotal   metric.Int64Counter
	LoginsTotal        metric.Int64Counter
	LoginFailuresTotal metric.Int64Counter

	// Issue metrics
	IssuesCreatedTotal metric.Int64Counter
	AssignmentsTotal   metric.Int64Counter
	AssignmentErrors   metric.Int64Counter

	// Team metrics
	TeamsCreatedTotal      metric.Int64Counter
	MembershipChangesTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.AuthDenialsTotal, _ = meter.Int64Counter(
		"tracker.auth.denials.total",
		metric.WithDescription("Total number of authorization denials"),
		metric.WithUnit("{denial}"),
	)

	m.LoginsTotal, _ = meter.Int64Counter(
		"tracker.auth.logins.total",
		metric.WithDescription("Total number of successful logins"),
		metric.WithUnit("{login}"),
	)

	m.LoginFailuresTotal, _ = meter.Int64Counter(
		"tracker.auth.login.failures.total",
		metric.WithDescription("Total number of failed login attempts"),
		metric.WithUnit("{failure}"),
	)

	m.IssuesCreatedTotal, _ = meter.Int64Counter(
		"tracker.issues.created.total",
		metric.WithDescription("Total number of issues created"),
		metric.WithUnit("{issue}"),
	)

	m.AssignmentsTotal, _ = meter.Int64Counter(
		"tracker.issues.assignments.total",
		metric.WithDescription("Total number of applied assignment transitions"),
		metric.WithUnit("{assignment}"),
	)

	m.AssignmentErrors, _ = meter.Int64Counter(
		"tracker.issues.assignment.errors.total",
		metric.WithDescription("Total number of rejected assignment requests"),
		metric.WithUnit("{error}"),
	)

	m.TeamsCreatedTotal, _ = meter.Int64Counter(
		"tracker.teams.created.total",
		metric.WithDescription("Total number of teams created"),
		metric.WithUnit("{team}"),
	)

	m.MembershipChangesTotal, _ = meter.Int64Counter(
		"tracker.teams.membership.changes.total",
		metric.WithDescription("Total number of team membership changes"),
		metric.WithUnit("{change}"),
	)

	return m
}
