package splitter

import (
	"context"

	"go.uber.org/zap"
)

// CompensatingAction undoes one remote side effect of a split.
type CompensatingAction struct {
	Description string
	Target      string
	Undo        func(ctx context.Context) error
}

// CompensationResult represents the result of a compensation (rollback) operation
type CompensationResult struct {
	Description  string `json:"description"`
	Target       string `json:"target"`
	Success      bool   `json:"success"`
	Error        error  `json:"-"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Compensation is the ordered list of actions to undo if a split fails.
type Compensation struct {
	actions []CompensatingAction
}

// Add registers an action. Actions run in reverse registration order.
func (c *Compensation) Add(description, target string, undo func(ctx context.Context) error) {
	c.actions = append(c.actions, CompensatingAction{
		Description: description,
		Target:      target,
		Undo:        undo,
	})
}

// Actions returns the registered actions in registration order
func (c *Compensation) Actions() []CompensatingAction {
	return append([]CompensatingAction(nil), c.actions...)
}

// Len returns the number of registered actions
func (c *Compensation) Len() int {
	return len(c.actions)
}

// Run executes every action, newest first. A failed action does not stop
// the remaining ones; its error is recorded in the result.
func (c *Compensation) Run(ctx context.Context, logger *zap.Logger) []CompensationResult {
	results := make([]CompensationResult, 0, len(c.actions))
	for i := len(c.actions) - 1; i >= 0; i-- {
		action := c.actions[i]
		result := CompensationResult{
			Description: action.Description,
			Target:      action.Target,
		}

		if err := action.Undo(ctx); err != nil {
			logger.Error("compensation failed",
				zap.String("action", action.Description),
				zap.String("target", action.Target),
				zap.Error(err),
			)
			result.Error = err
			result.ErrorMessage = err.Error()
		} else {
			logger.Debug("compensation successful",
				zap.String("action", action.Description),
				zap.String("target", action.Target),
			)
			result.Success = true
		}
		results = append(results, result)
	}
	return results
}

// failedCompensations counts unsuccessful results
func failedCompensations(results []CompensationResult) int {
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	return failed
}
