package urconf

import (
	"fmt"
	"time"
)

// ActionKind names the mutation an Action performs.
type ActionKind string

const (
	ActionCreate  ActionKind = "create"
	ActionUpdate  ActionKind = "update"
	ActionDelete  ActionKind = "delete"
	ActionReplace ActionKind = "replace"
)

// Action describes one intended or performed mutation against the provider.
type Action struct {
	Entity  string // "contact" or "monitor"
	Kind    ActionKind
	Subject string // contact identity or monitor name
	Detail  string // human readable, old -> new where applicable
}

func (a Action) String() string {
	if a.Detail == "" {
		return fmt.Sprintf("%s %s %s", a.Kind, a.Entity, a.Subject)
	}
	return fmt.Sprintf("%s %s %s (%s)", a.Kind, a.Entity, a.Subject, a.Detail)
}

// OperationError reports a single failed create/update/delete. Failures are
// collected in the report rather than aborting the sync, so independent
// operations still run.
type OperationError struct {
	Action Action
	Err    error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// SkippedOperation records an operation that was not attempted because an
// operation it depends on failed.
type SkippedOperation struct {
	Action Action
	Reason string
}

// SyncReport enumerates everything one sync run did, planned, failed, or
// skipped, making every mutation and every dependency-blocked skip
// traceable without capturing log output.
type SyncReport struct {
	RunID      string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time

	Created []Action
	Updated []Action
	Deleted []Action
	Planned []Action // dry-run only: what would have happened
	Failed  []*OperationError
	Skipped []SkippedOperation

	UnchangedContacts int
	UnchangedMonitors int
}

// Empty reports whether the run had nothing to do.
func (r *SyncReport) Empty() bool {
	return len(r.Created) == 0 && len(r.Updated) == 0 && len(r.Deleted) == 0 &&
		len(r.Planned) == 0 && len(r.Failed) == 0 && len(r.Skipped) == 0
}

// OK reports whether every operation either succeeded or was a planned
// dry-run entry.
func (r *SyncReport) OK() bool {
	return len(r.Failed) == 0 && len(r.Skipped) == 0
}

// Summary renders a one-line account of the run.
func (r *SyncReport) Summary() string {
	if r.DryRun {
		return fmt.Sprintf("plan: %d operations pending, %d contacts and %d monitors unchanged",
			len(r.Planned), r.UnchangedContacts, r.UnchangedMonitors)
	}
	return fmt.Sprintf("created %d, updated %d, deleted %d, failed %d, skipped %d, unchanged %d",
		len(r.Created), len(r.Updated), len(r.Deleted), len(r.Failed), len(r.Skipped),
		r.UnchangedContacts+r.UnchangedMonitors)
}
