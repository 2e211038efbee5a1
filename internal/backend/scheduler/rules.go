package scheduler

import (
	"time"

	"github.com/healchain/healchain-backend/internal/backend/types"
)

// Snapshot is everything a transition rule may look at: the task row plus
// the signals the sweep gathered for it. Rules are pure functions over a
// snapshot; the sweep driver owns all I/O.
type Snapshot struct {
	Task            types.TaskData
	Now             time.Time
	RevealGrace     time.Duration
	ResultPublished bool
	TallyApproved   bool
	RewardsSettled  bool
	MinerCount      int
}

type Rule struct {
	Name string
	Eval func(s Snapshot) (types.TaskStatus, bool)
}

// sweepRules in evaluation order; the first matching rule wins for a given
// sweep pass.
//
// REVEAL_OPEN has racing exits: consensus approval moves it to VERIFIED,
// while the same approval (and, independently, the reveal deadline) can
// close the reveal window. The source system ran these as unordered checks;
// here the order is fixed and consensus-to-VERIFIED is evaluated first, so
// an approved task verifies rather than merely closing. Both consensus
// rules are kept explicit rather than folding one into the other.
var sweepRules = []Rule{
	{Name: "cancel_unfunded", Eval: ruleCancelUnfunded},
	{Name: "created_to_open", Eval: ruleCreatedToOpen},
	{Name: "open_to_commit_closed", Eval: ruleOpenToCommitClosed},
	{Name: "verified_by_consensus", Eval: ruleVerifiedByConsensus},
	{Name: "reveal_closed_by_consensus", Eval: ruleRevealClosedByConsensus},
	{Name: "reveal_closed_by_deadline", Eval: ruleRevealClosedByDeadline},
	{Name: "verified_to_rewarded", Eval: ruleVerifiedToRewarded},
}

// ruleCancelUnfunded is the safety net for tasks that entered the store
// without a confirmed escrow lock. The verifier makes this unreachable, but
// the sweep enforces it anyway.
func ruleCancelUnfunded(s Snapshot) (types.TaskStatus, bool) {
	if s.Task.Status.IsTerminal() {
		return "", false
	}
	if s.Task.EscrowTxHash == "" && !s.Now.Before(s.Task.Deadline) {
		return types.TaskStatusCancelled, true
	}
	return "", false
}

// ruleCreatedToOpen is the vestigial path for tasks admitted before escrow
// confirmation; the verifier normally creates tasks directly in OPEN.
func ruleCreatedToOpen(s Snapshot) (types.TaskStatus, bool) {
	if s.Task.Status == types.TaskStatusCreated && !s.Now.Before(s.Task.Deadline) {
		return types.TaskStatusOpen, true
	}
	return "", false
}

func ruleOpenToCommitClosed(s Snapshot) (types.TaskStatus, bool) {
	if s.Task.Status == types.TaskStatusOpen && !s.Now.Before(s.Task.Deadline) {
		return types.TaskStatusCommitClosed, true
	}
	return "", false
}

func ruleVerifiedByConsensus(s Snapshot) (types.TaskStatus, bool) {
	if s.Task.Status == types.TaskStatusRevealOpen && s.ResultPublished && s.TallyApproved {
		return types.TaskStatusVerified, true
	}
	return "", false
}

func ruleRevealClosedByConsensus(s Snapshot) (types.TaskStatus, bool) {
	if s.Task.Status == types.TaskStatusRevealOpen && s.ResultPublished && s.TallyApproved {
		return types.TaskStatusRevealClosed, true
	}
	return "", false
}

func ruleRevealClosedByDeadline(s Snapshot) (types.TaskStatus, bool) {
	if s.Task.Status == types.TaskStatusRevealOpen && !s.Now.Before(s.Task.Deadline.Add(s.RevealGrace)) {
		return types.TaskStatusRevealClosed, true
	}
	return "", false
}

func ruleVerifiedToRewarded(s Snapshot) (types.TaskStatus, bool) {
	if s.Task.Status == types.TaskStatusVerified && s.MinerCount > 0 && s.RewardsSettled {
		return types.TaskStatusRewarded, true
	}
	return "", false
}

// evalRules returns the first matching rule and its target status.
func evalRules(s Snapshot) (Rule, types.TaskStatus, bool) {
	for _, rule := range sweepRules {
		if next, ok := rule.Eval(s); ok {
			return rule, next, true
		}
	}
	return Rule{}, "", false
}
