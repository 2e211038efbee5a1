package types

// TaskStatus is the lifecycle state of a task. Statuses only move forward;
// the scheduler sweep never applies a backward edge.
type TaskStatus string

const (
	TaskStatusCreated      TaskStatus = "CREATED"
	TaskStatusOpen         TaskStatus = "OPEN"
	TaskStatusCommitClosed TaskStatus = "COMMIT_CLOSED"
	TaskStatusAggregating  TaskStatus = "AGGREGATING"
	TaskStatusRevealOpen   TaskStatus = "REVEAL_OPEN"
	TaskStatusRevealClosed TaskStatus = "REVEAL_CLOSED"
	TaskStatusVerified     TaskStatus = "VERIFIED"
	TaskStatusRewarded     TaskStatus = "REWARDED"
	TaskStatusCancelled    TaskStatus = "CANCELLED"
)

// statusRank orders statuses along the transition graph. CANCELLED is
// reachable from any non-terminal status, so it ranks above everything.
var statusRank = map[TaskStatus]int{
	TaskStatusCreated:      0,
	TaskStatusOpen:         1,
	TaskStatusCommitClosed: 2,
	TaskStatusAggregating:  3,
	TaskStatusRevealOpen:   4,
	TaskStatusRevealClosed: 5,
	TaskStatusVerified:     6,
	TaskStatusRewarded:     7,
	TaskStatusCancelled:    8,
}

// NonTerminalStatuses lists every status the sweep still has work to do on.
var NonTerminalStatuses = []TaskStatus{
	TaskStatusCreated,
	TaskStatusOpen,
	TaskStatusCommitClosed,
	TaskStatusAggregating,
	TaskStatusRevealOpen,
	TaskStatusRevealClosed,
	TaskStatusVerified,
}

func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusRewarded || s == TaskStatusCancelled
}

// IsForwardOf reports whether moving from `from` to s is a forward edge.
func (s TaskStatus) IsForwardOf(from TaskStatus) bool {
	return statusRank[s] > statusRank[from]
}

func (s TaskStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}
