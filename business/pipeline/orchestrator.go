package pipeline

import (
	"context"
	"fmt"
	"time"

	"priceSense/domain"
	"priceSense/pkg/logger"
	"priceSense/pkg/metrics"
	"priceSense/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// Orchestrator runs a Graph sequentially against one request's State.
type Orchestrator struct {
	stageTimeout   time.Duration
	requestTimeout time.Duration
	policy         Policy
}

func NewOrchestrator(stageTimeout, requestTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		stageTimeout:   stageTimeout,
		requestTimeout: requestTimeout,
		policy:         FailSoft,
	}
}

func (o *Orchestrator) WithPolicy(p Policy) *Orchestrator {
	cp := *o
	cp.policy = p
	return &cp
}

// Execute walks g from its entry. Stage failures are folded into st and
// never returned; the error result only reports an invalid graph. The
// request deadline is checked before every stage, and once it has passed the
// remaining stages are skipped.
func (o *Orchestrator) Execute(ctx context.Context, g *Graph, st *State) error {
	if err := g.Validate(); err != nil {
		return err
	}

	if o.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.requestTimeout)
		defer cancel()
	}

	logger.Debug("pipeline_start",
		"trace_id", st.TraceID,
		"graph", g.Name(),
		"path", st.Path,
		"complexity", st.Complexity,
	)

	current := g.entry
	for steps := 0; current != End; steps++ {
		if steps > len(g.nodes) {
			return fmt.Errorf("graph %s: step limit exceeded", g.Name())
		}

		if err := ctx.Err(); err != nil {
			se := Classify(current, err)
			recordError(st, se)
			st.Warn("pipeline stopped before %s: %v", current, err)
			return nil
		}

		node := g.nodes[current]
		if err := o.runNode(ctx, node, st); err != nil {
			se := Classify(current, err)
			node.Fallback(st)
			recordError(st, se)
			if !o.policy(se) {
				return nil
			}
		}

		current = g.next(current, st)
	}

	logger.Debug("pipeline_done",
		"trace_id", st.TraceID,
		"graph", g.Name(),
		"errors", len(st.Errors),
		"degraded", st.Degraded,
	)
	return nil
}

func (o *Orchestrator) runNode(ctx context.Context, node Node, st *State) (err error) {
	if o.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.stageTimeout)
		defer cancel()
	}

	ctx, end := tracing.StartSpan(ctx, "stage."+node.Name(),
		attribute.String("pipeline.path", string(st.Path)),
		attribute.String("pipeline.stage", node.Name()),
	)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = StageError{Stage: node.Name(), Kind: KindInternal, Err: fmt.Errorf("panic: %v", r)}
		}
		end(err)

		elapsed := time.Since(start)
		st.Timings = append(st.Timings, domain.StageTiming{
			Stage:      node.Name(),
			DurationMs: float64(elapsed.Microseconds()) / 1000,
			Failed:     err != nil,
		})
		logger.Debug("stage_done",
			"trace_id", st.TraceID,
			"stage", node.Name(),
			"duration_ms", elapsed.Milliseconds(),
			"failed", err != nil,
		)
	}()

	return node.Run(ctx, st)
}

// recordError appends se to the state's errors, counts it and logs it. Stages
// use it directly for failures they absorbed without returning an error.
func recordError(st *State, se StageError) {
	st.Errors = append(st.Errors, se)
	metrics.StageFailures.WithLabelValues(se.Stage, string(se.Kind)).Inc()

	level := logger.Warn
	if se.Kind == KindInternal || se.Kind == KindInvariantViolation {
		level = logger.Error
	}
	level("stage_failed",
		"trace_id", st.TraceID,
		"stage", se.Stage,
		"kind", se.Kind,
		"error", se.Err,
	)
}
