package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labflow/backend/internal/application/splitter"
	appwo "github.com/labflow/backend/internal/application/workorder"
	"github.com/labflow/backend/internal/domain/shared"
	"github.com/labflow/backend/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const configFlag = "config"

func newRootCmd(build builder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "splitter [sub-command]",
		Short: "Split laboratory work orders into jobs",
		Long: `splitter partitions the working set of a work order by container,
  creating one job and one locked input set per container. It also runs the
  set life-cycle operations of a work order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		Version:           version,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
	cmd.PersistentFlags().String(configFlag, "", "path to a TOML config file (default: ./config.toml or /app/config.toml)")

	cmd.AddCommand(
		newSplitCmd(build),
		newFinaliseCmd(build),
		newEditableSetCmd(build),
		newLockedSetCmd(build),
		newShowCmd(build),
		newRunsCmd(build),
		newRunCmd(build),
		newPlanCmd(build),
		newActivateCmd(build),
		newCostCmd(build),
		newJobCmd(build),
	)
	return cmd
}

// runFunc is the body of a command operating on one record
type runFunc func(ctx context.Context, a *app, id uuid.UUID, out io.Writer) error

// scope tags ctx and its logger with the id a command operates on
type scope func(ctx context.Context, log *zap.Logger, id string) (context.Context, *zap.Logger)

func fieldScope(key string) scope {
	return func(ctx context.Context, log *zap.Logger, id string) (context.Context, *zap.Logger) {
		log = log.With(zap.String(key, id))
		return logger.WithContext(ctx, log), log
	}
}

// workOrderCmd builds a command taking exactly one work order UUID argument.
func workOrderCmd(build builder, use, short string, run runFunc) *cobra.Command {
	return idCmd(build, use, "work order", short, logger.WithWorkOrderID, run)
}

// idCmd builds a command taking exactly one UUID argument naming a noun.
// It assembles the app, tags the context with request and record ids,
// and closes the app when run returns.
func idCmd(build builder, use, noun, short string, tag scope, run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <%s-id>", use, strings.ReplaceAll(noun, " ", "-")),
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid %s id %q: %w", noun, args[0], err)
			}
			configPath, err := cmd.Flags().GetString(configFlag)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := build(ctx, configPath)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(context.WithoutCancel(ctx)); err != nil {
					a.log.Warn("shutdown incomplete", zap.Error(err))
				}
			}()

			ctx, log := logger.WithRequestID(ctx, a.log, uuid.NewString())
			ctx, log = tag(ctx, log, id.String())
			log.Debug("command started", zap.String("command", cmd.CommandPath()))

			return run(ctx, a, id, cmd.OutOrStdout())
		},
	}
}

// listFlags are the paging and ordering flags of list commands
type listFlags struct {
	page     int
	pageSize int
	orderBy  string
	order    string
}

func (f *listFlags) register(cmd *cobra.Command, defaultOrderBy string) {
	cmd.Flags().IntVar(&f.page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "rows per page, 0 lists every row")
	cmd.Flags().StringVar(&f.orderBy, "order-by", defaultOrderBy, "column to order by")
	cmd.Flags().StringVar(&f.order, "order", "", "asc or desc")
}

func (f *listFlags) filter() shared.Filter {
	return shared.Filter{Page: f.page, PageSize: f.pageSize, OrderBy: f.orderBy, OrderDir: f.order}
}

// atFlag is an optional RFC 3339 timestamp, now when unset
type atFlag struct {
	value string
}

func (f *atFlag) register(cmd *cobra.Command, usage string) {
	cmd.Flags().StringVar(&f.value, "at", "", usage+" (RFC 3339, default now)")
}

func (f *atFlag) time() (time.Time, error) {
	if f.value == "" {
		return time.Now().UTC(), nil
	}
	at, err := time.Parse(time.RFC3339, f.value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: %w", f.value, err)
	}
	return at, nil
}

// splitOutput is the JSON report of one split run
type splitOutput struct {
	WorkOrderID   uuid.UUID                     `json:"work_order_id"`
	RunID         uuid.UUID                     `json:"run_id"`
	State         string                        `json:"state"`
	FailedIn      string                        `json:"failed_in,omitempty"`
	Jobs          []jobOutput                   `json:"jobs"`
	Compensations []splitter.CompensationResult `json:"compensations,omitempty"`
	Duration      string                        `json:"duration"`
	Error         string                        `json:"error,omitempty"`
}

type jobOutput struct {
	ID            uuid.UUID `json:"id"`
	ContainerUUID string    `json:"container_uuid"`
	InputSetUUID  string    `json:"input_set_uuid"`
}

func newSplitOutput(r *splitter.Result, err error) splitOutput {
	out := splitOutput{
		WorkOrderID:   r.WorkOrderID,
		RunID:         r.RunID,
		State:         r.State.String(),
		Jobs:          make([]jobOutput, 0, len(r.Jobs)),
		Compensations: r.Compensations,
		Duration:      r.Duration.Round(time.Millisecond).String(),
	}
	if !r.Success() && r.FailedIn != splitter.StateNotStarted {
		out.FailedIn = r.FailedIn.String()
	}
	for _, job := range r.Jobs {
		out.Jobs = append(out.Jobs, jobOutput{
			ID:            job.ID,
			ContainerUUID: job.ContainerUUID,
			InputSetUUID:  job.InputSetUUID,
		})
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

func newSplitCmd(build builder) *cobra.Command {
	return workOrderCmd(build, "split", "Create one job and one locked input set per container",
		func(ctx context.Context, a *app, id uuid.UUID, out io.Writer) error {
			result, err := a.splitter.Split(ctx, id)
			if result != nil {
				if werr := writeJSON(out, newSplitOutput(result, err)); werr != nil && err == nil {
					err = werr
				}
			}
			return err
		})
}

type finaliseOutput struct {
	WorkOrderID uuid.UUID `json:"work_order_id"`
	Locked      bool      `json:"locked"`
}

func newFinaliseCmd(build builder) *cobra.Command {
	return workOrderCmd(build, "finalise", "Lock the working set of a work order, or adopt a locked clone",
		func(ctx context.Context, a *app, id uuid.UUID, out io.Writer) error {
			locked, err := a.service.FinaliseSet(ctx, id)
			if err != nil {
				return err
			}
			return writeJSON(out, finaliseOutput{WorkOrderID: id, Locked: locked})
		})
}

func newEditableSetCmd(build builder) *cobra.Command {
	return workOrderCmd(build, "editable-set", "Clone the original set into an unlocked working set",
		func(ctx context.Context, a *app, id uuid.UUID, out io.Writer) error {
			set, err := a.service.CreateEditableSet(ctx, id)
			if err != nil {
				return err
			}
			return writeJSON(out, set)
		})
}

func newLockedSetCmd(build builder) *cobra.Command {
	return workOrderCmd(build, "locked-set", "Clone the original set into a locked working set",
		func(ctx context.Context, a *app, id uuid.UUID, out io.Writer) error {
			set, err := a.service.CreateLockedSet(ctx, id)
			if err != nil {
				return err
			}
			return writeJSON(out, set)
		})
}

func newShowCmd(build builder) *cobra.Command {
	return workOrderCmd(build, "show", "Print a work order with its sets and jobs resolved",
		func(ctx context.Context, a *app, id uuid.UUID, out io.Writer) error {
			resp, err := a.service.Describe(ctx, id)
			if err != nil {
				return err
			}
			return writeJSON(out, resp)
		})
}

func newRunsCmd(build builder) *cobra.Command {
	var lf listFlags
	cmd := workOrderCmd(build, "runs", "List the recorded split attempts of a work order, newest first",
		func(ctx context.Context, a *app, id uuid.UUID, out io.Writer) error {
			runs, err := a.service.SplitRuns(ctx, id, lf.filter())
			if err != nil {
				return err
			}
			return writeJSON(out, runs)
		})
	lf.register(cmd, "created_at")
	return cmd
}

func newRunCmd(build builder) *cobra.Command {
	return idCmd(build, "run", "split run", "Print one recorded split attempt", fieldScope("run_id"),
		func(ctx context.Context, a *app, id uuid.UUID, out io.Writer) error {
			run, err := a.service.SplitRun(ctx, id)
			if err != nil {
				return err
			}
			return writeJSON(out, run)
		})
}

func newPlanCmd(build builder) *cobra.Command {
	var lf listFlags
	cmd := idCmd(build, "plan", "work plan", "List the work orders of a work plan with their job counts", fieldScope("work_plan_id"),
		func(ctx context.Context, a *app, id uuid.UUID, out io.Writer) error {
			orders, err := a.service.WorkOrders(ctx, id, lf.filter())
			if err != nil {
				return err
			}
			return writeJSON(out, orders)
		})
	lf.register(cmd, "order_index")
	return cmd
}

func newActivateCmd(build builder) *cobra.Command {
	var at atFlag
	cmd := workOrderCmd(build, "activate", "Dispatch a pending work order",
		func(ctx context.Context, a *app, id uuid.UUID, out io.Writer) error {
			when, err := at.time()
			if err != nil {
				return err
			}
			order, err := a.service.Activate(ctx, id, when)
			if err != nil {
				return err
			}
			return writeJSON(out, order)
		})
	at.register(cmd, "dispatch date")
	return cmd
}

func newCostCmd(build builder) *cobra.Command {
	var amount string
	cmd := workOrderCmd(build, "cost", "Record the quoted total cost of a work order",
		func(ctx context.Context, a *app, id uuid.UUID, out io.Writer) error {
			cost, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid --amount %q: %w", amount, err)
			}
			order, err := a.service.SetTotalCost(ctx, id, cost)
			if err != nil {
				return err
			}
			return writeJSON(out, order)
		})
	cmd.Flags().StringVar(&amount, "amount", "", "total cost as a decimal number")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

// jobUpdate applies one life-cycle step to a job
type jobUpdate func(s *appwo.WorkOrderService, ctx context.Context, id uuid.UUID, at time.Time, comment string) (*appwo.JobResponse, error)

func newJobCmd(build builder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Record the progress of a job",
	}
	cmd.AddCommand(
		jobStepCmd(build, "start", "Mark a job as started", false,
			func(s *appwo.WorkOrderService, ctx context.Context, id uuid.UUID, at time.Time, _ string) (*appwo.JobResponse, error) {
				return s.StartJob(ctx, id, at)
			}),
		jobStepCmd(build, "complete", "Close a started job", true, (*appwo.WorkOrderService).CompleteJob),
		jobStepCmd(build, "cancel", "Close a job that will not be completed", true, (*appwo.WorkOrderService).CancelJob),
	)
	return cmd
}

func jobStepCmd(build builder, use, short string, closes bool, step jobUpdate) *cobra.Command {
	var (
		at      atFlag
		comment string
	)
	cmd := idCmd(build, use, "job", short, fieldScope("job_id"),
		func(ctx context.Context, a *app, id uuid.UUID, out io.Writer) error {
			when, err := at.time()
			if err != nil {
				return err
			}
			job, err := step(a.service, ctx, id, when, comment)
			if err != nil {
				return err
			}
			return writeJSON(out, job)
		})
	at.register(cmd, "time of the step")
	if closes {
		cmd.Flags().StringVar(&comment, "comment", "", "close comment")
	}
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
