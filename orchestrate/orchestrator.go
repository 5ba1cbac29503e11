package orchestrate

import (
	"github.com/pkg/errors"
)

// Task names the orchestrator's top-level selector, spec.md section 4.10.
type Task string

const (
	TaskAlign    Task = "align"
	TaskPostproc Task = "postproc"
	TaskReport   Task = "report"
	TaskAlipost  Task = "alipost" // align + postproc + report
	TaskAll      Task = "all"     // same as alipost
)

// RunOptions bundles the three phases' option structs so one invocation of
// Run can drive any combination the task selector names.
type RunOptions struct {
	Align    AlignOptions
	Postproc PostprocOptions
	Report   ReportOptions
}

// Run dispatches to RunAlign/RunPostproc/RunReport according to task,
// threading PostprocResult into ReportOptions.Postproc when both phases
// run in the same invocation, per spec.md section 4.10's task selector.
func Run(task Task, o RunOptions) error {
	switch task {
	case TaskAlign:
		return RunAlign(o.Align)
	case TaskPostproc:
		_, err := RunPostproc(o.Postproc)
		return err
	case TaskReport:
		return RunReport(o.Report)
	case TaskAlipost, TaskAll:
		if err := RunAlign(o.Align); err != nil {
			return err
		}
		result, err := RunPostproc(o.Postproc)
		if err != nil {
			return err
		}
		o.Report.Postproc = result
		return RunReport(o.Report)
	default:
		return errors.Errorf("orchestrate: unknown task %q", task)
	}
}
