package observability

// Metric name prefixes
const (
	MetricPrefix = "socialbets"
)

// Metric names
const (
	// Resolution metrics
	VotesCastTotal           = MetricPrefix + ".resolution.votes_cast_total"
	BetsResolvedTotal        = MetricPrefix + ".resolution.bets_resolved_total"
	BetsCancelledTotal       = MetricPrefix + ".lifecycle.bets_cancelled_total"
	InterventionsNeededTotal = MetricPrefix + ".resolution.interventions_needed_total"

	// Settlement metrics
	ParticipationsSettledTotal = MetricPrefix + ".settlement.participations_settled_total"
	SettlementFailuresTotal    = MetricPrefix + ".settlement.failures_total"

	// Fulfillment metrics
	FulfillmentClaimsTotal = MetricPrefix + ".fulfillment.claims_total"

	// Sweeper metrics
	SweepRunsTotal = MetricPrefix + ".sweeper.runs_total"
	SweepDuration  = MetricPrefix + ".sweeper.duration"
)

// Label keys
const (
	LabelOutcomeKind = "outcome_kind"
	LabelForced      = "forced"
	LabelTrigger     = "trigger"
	LabelJob         = "job"
	LabelStatus      = "status"
)

// Cancellation triggers
const (
	TriggerCreator = "creator"
	TriggerNoVotes = "no_votes"
)

// Sweep run statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)
