package errjournal

import (
	"errors"
	"fmt"
	"strings"

	"go.temporal.io/sdk/temporal"
)

// FormatChain renders a verbose, multi-line description of an error
// chain, walking Unwrap() the way the router walks a Temporal
// ApplicationError/ActivityError/ChildWorkflowExecutionError/timeout
// chain's .cause in the source implementation. Known Temporal error
// types contribute their identifying fields (activity/workflow ids,
// retry state); anything else falls back to its Error() string. Visited
// pointers are tracked by identity-ish key (the formatted message) to
// avoid infinite loops on cyclic wraps.
func FormatChain(err error) string {
	var lines []string
	seen := map[string]bool{}
	level := 0
	cur := err
	for cur != nil {
		key := fmt.Sprintf("%T:%s", cur, cur.Error())
		if seen[key] {
			break
		}
		seen[key] = true

		lines = append(lines, formatOne(level, cur))
		cur = errors.Unwrap(cur)
		level++
	}
	return strings.Join(lines, "\n")
}

func formatOne(level int, err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[level %d] %T\nmessage=%s", level, err, err.Error())

	var appErr *temporal.ApplicationError
	var actErr *temporal.ActivityError
	var childErr *temporal.ChildWorkflowExecutionError
	var timeoutErr *temporal.TimeoutError
	var canceledErr *temporal.CanceledError
	var panicErr *temporal.PanicError
	var serverErr *temporal.ServerError

	switch {
	case errors.As(err, &appErr):
		fmt.Fprintf(&b, "\ntype=%s nonRetryable=%v", appErr.Type(), appErr.NonRetryable())
	case errors.As(err, &actErr):
		fmt.Fprintf(&b, "\nactivity_type=%s activity_id=%s identity=%s scheduled_event_id=%d started_event_id=%d retry_state=%s",
			actErr.ActivityType().GetName(), actErr.ActivityID(), actErr.Identity(),
			actErr.ScheduledEventID(), actErr.StartedEventID(), actErr.RetryState())
	case errors.As(err, &childErr):
		fmt.Fprintf(&b, "\nworkflow_id=%s run_id=%s workflow_type=%s namespace=%s initiated_event_id=%d started_event_id=%d retry_state=%s",
			childErr.WorkflowExecution().GetWorkflowId(), childErr.WorkflowExecution().GetRunId(),
			childErr.WorkflowType().GetName(), childErr.Namespace(),
			childErr.InitiatedEventID(), childErr.StartedEventID(), childErr.RetryState())
	case errors.As(err, &timeoutErr):
		fmt.Fprintf(&b, "\ntimeout_type=%s", timeoutErr.TimeoutType())
	case errors.As(err, &canceledErr):
		b.WriteString("\ncanceled")
	case errors.As(err, &panicErr):
		fmt.Fprintf(&b, "\nstack_trace=%s", panicErr.StackTrace())
	case errors.As(err, &serverErr):
		fmt.Fprintf(&b, "\nnonRetryable=%v", serverErr.NonRetryable())
	}
	return b.String()
}
