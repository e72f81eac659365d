package workflow

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rasad8686/agentcore/types"
)

// runSequential chains the bound agents in binding order: each step's output
// becomes the next step's input, and the last output is the workflow output.
func (e *Engine) runSequential(ctx context.Context, r *run, input any, agents []*boundAgent) (any, error) {
	current := input
	for _, ba := range agents {
		if err := r.ctrl.Gate(ctx); err != nil {
			return nil, err
		}
		res := e.runStep(ctx, r, ba, r.allocOrder(), current)
		if !res.Success {
			return nil, types.NewErrorf(types.ErrCodeStepExecution,
				"agent %s failed: %s", res.AgentID, res.Error)
		}
		current = res.Output
	}
	return current, nil
}

// runParallel fans the same input out to every bound agent concurrently.
// Every goroutine runs to completion before the join so step rows are
// always terminal; any failure then fails the stage. Outputs are combined
// in binding order.
func (e *Engine) runParallel(ctx context.Context, r *run, input any, agents []*boundAgent) (any, error) {
	if err := r.ctrl.Gate(ctx); err != nil {
		return nil, err
	}

	orders := make([]int, len(agents))
	for i := range agents {
		orders[i] = r.allocOrder()
	}

	results := make([]StepResult, len(agents))
	var g errgroup.Group
	for i, ba := range agents {
		i, ba := i, ba
		g.Go(func() error {
			res := e.runStep(ctx, r, ba, orders[i], input)
			results[i] = res
			if !res.Success {
				return fmt.Errorf("agent %s failed: %s", res.AgentID, res.Error)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, types.NewError(types.ErrCodeStepExecution, err.Error())
	}

	outputs := make([]any, len(results))
	for i, res := range results {
		outputs[i] = res.Output
	}
	return map[string]any{ParallelResultsKey: outputs}, nil
}

// runConditional walks the routing rules starting from the entry agent. After
// each step the rules whose from-agent matches are scanned in declaration
// order and the first matching condition picks the next agent; no match ends
// the execution successfully at the current output.
func (e *Engine) runConditional(ctx context.Context, r *run, input any) (any, error) {
	if r.wf.Flow == nil {
		return nil, types.NewError(types.ErrCodeValidation, "conditional workflow has no flow configuration")
	}

	currentAgent := r.wf.Flow.EntryAgent
	if currentAgent == "" {
		currentAgent = r.agents[0].binding.AgentID
	}

	current := input
	transitions := 0
	for {
		ba, ok := r.byID[currentAgent]
		if !ok {
			return nil, types.NewErrorf(types.ErrCodeNotFound,
				"agent %s is not bound to this workflow", currentAgent)
		}
		if err := r.ctrl.Gate(ctx); err != nil {
			return nil, err
		}

		res := e.runStep(ctx, r, ba, r.allocOrder(), current)
		if !res.Success {
			return nil, types.NewErrorf(types.ErrCodeStepExecution,
				"agent %s failed: %s", res.AgentID, res.Error)
		}
		current = res.Output

		next := ""
		for i := range r.wf.Flow.Rules {
			rule := &r.wf.Flow.Rules[i]
			if rule.FromAgent != currentAgent {
				continue
			}
			if EvaluateCondition(rule.Condition, res.Output) {
				next = rule.TargetAgent
				break
			}
		}
		if next == "" {
			return current, nil
		}

		transitions++
		if transitions > e.cfg.MaxTransitions {
			return nil, types.NewErrorf(types.ErrCodeStepExecution,
				"conditional routing exceeded %d transitions", e.cfg.MaxTransitions)
		}
		currentAgent = next
	}
}

// runMixed executes the flow's stages in declaration order. Each stage runs
// its agents sequentially or in parallel per its mode, the whole stage
// succeeds or the execution fails, and the stage output feeds the next
// stage.
func (e *Engine) runMixed(ctx context.Context, r *run, input any) (any, error) {
	if r.wf.Flow == nil || len(r.wf.Flow.Stages) == 0 {
		return nil, types.NewError(types.ErrCodeValidation, "mixed workflow has no stages")
	}

	current := input
	for _, stage := range r.wf.Flow.Stages {
		agents := make([]*boundAgent, 0, len(stage.Agents))
		for _, b := range stage.Agents {
			if ba, ok := r.byID[b.AgentID]; ok {
				agents = append(agents, ba)
			}
		}
		if len(agents) == 0 {
			return nil, types.NewErrorf(types.ErrCodeValidation,
				"stage %s has no executable agents", stage.Name)
		}

		var (
			out any
			err error
		)
		if stage.Mode == types.StageParallel {
			out, err = e.runParallel(ctx, r, current, agents)
		} else {
			out, err = e.runSequential(ctx, r, current, agents)
		}
		if err != nil {
			return nil, err
		}
		current = out
	}
	return current, nil
}
