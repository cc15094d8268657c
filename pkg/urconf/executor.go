package urconf

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/knyar/urconf/pkg/diff"
	"github.com/knyar/urconf/pkg/types"
)

// executor applies an operation set in dependency order:
//
//  1. server-side ids of unchanged matches are stamped onto declarations,
//  2. contact creations (including the create half of replaces), so ids
//     exist before anything references them,
//  3. straightforward contact deletions,
//  4. monitor creations, updates, and replaces, with declared contact
//     references resolved to server-side ids,
//  5. monitor deletions,
//  6. deferred deletions of replaced contacts, which must not run while any
//     monitor may still reference the old id.
//
// A failed operation never aborts the run; it is recorded in the report and
// every operation depending on it is skipped and recorded as blocked.
type executor struct {
	provider Provider
	logger   *log.Logger
	dryRun   bool
	now      func() time.Time
}

func (e *executor) execute(ctx context.Context, ops diff.OperationSet) *SyncReport {
	report := &SyncReport{
		RunID:     uuid.NewString(),
		DryRun:    e.dryRun,
		StartedAt: e.now().UTC(),
	}

	for _, match := range ops.ContactsUnchanged {
		match.Desired.RemoteID = match.Remote.RemoteID
	}
	for _, match := range ops.MonitorsUnchanged {
		match.Desired.RemoteID = match.Remote.RemoteID
	}
	report.UnchangedContacts = len(ops.ContactsUnchanged)
	report.UnchangedMonitors = len(ops.MonitorsUnchanged)

	// Contacts whose creation failed, by identity.
	failedContacts := map[types.ContactKey]bool{}
	// Old server-side contact ids that may still be referenced by a remote
	// monitor because an operation on that monitor failed or was skipped.
	staleContactIDs := map[string]bool{}

	e.createContacts(ctx, ops, report, failedContacts)
	e.removeContacts(ctx, ops, report, false, failedContacts, staleContactIDs)
	e.applyMonitorChanges(ctx, ops, report, failedContacts, staleContactIDs)
	e.removeMonitors(ctx, ops, report, staleContactIDs)
	e.removeContacts(ctx, ops, report, true, failedContacts, staleContactIDs)

	report.FinishedAt = e.now().UTC()
	return report
}

func (e *executor) createContacts(ctx context.Context, ops diff.OperationSet, report *SyncReport, failed map[types.ContactKey]bool) {
	for _, add := range ops.ContactsToAdd {
		action := Action{
			Entity:  "contact",
			Kind:    ActionCreate,
			Subject: add.Contact.Key().String(),
			Detail:  fmt.Sprintf("friendly name %q", add.Contact.FriendlyName),
		}
		if add.Replaces != nil {
			action.Kind = ActionReplace
			action.Detail = fmt.Sprintf("friendly name %q -> %q", add.Replaces.FriendlyName, add.Contact.FriendlyName)
		}
		if e.dryRun {
			e.plan(report, action)
			continue
		}
		e.logger.Printf("creating contact %s", add.Contact)
		id, err := e.provider.CreateContact(ctx, add.Contact)
		if err != nil {
			e.fail(report, action, err)
			failed[add.Contact.Key()] = true
			continue
		}
		add.Contact.RemoteID = id
		report.Created = append(report.Created, action)
	}
}

func (e *executor) removeContacts(ctx context.Context, ops diff.OperationSet, report *SyncReport, deferred bool, failed map[types.ContactKey]bool, stale map[string]bool) {
	for _, rem := range ops.ContactsToRemove {
		if rem.Deferred != deferred {
			continue
		}
		action := Action{
			Entity:  "contact",
			Kind:    ActionDelete,
			Subject: rem.Contact.Key().String(),
		}
		if deferred {
			action.Detail = "replaced"
		}
		if e.dryRun {
			e.plan(report, action)
			continue
		}
		if deferred && failed[rem.Contact.Key()] {
			e.skip(report, action, "replacement contact was not created")
			continue
		}
		if deferred && stale[rem.Contact.RemoteID] {
			e.skip(report, action, "a monitor may still reference the old contact id")
			continue
		}
		e.logger.Printf("deleting contact %s", rem.Contact)
		if err := e.provider.DeleteContact(ctx, rem.Contact.RemoteID); err != nil {
			e.fail(report, action, err)
			continue
		}
		report.Deleted = append(report.Deleted, action)
	}
}

func (e *executor) applyMonitorChanges(ctx context.Context, ops diff.OperationSet, report *SyncReport, failedContacts map[types.ContactKey]bool, stale map[string]bool) {
	for _, ch := range ops.MonitorsToAddOrUpdate {
		action := monitorChangeAction(ch)
		if e.dryRun {
			e.plan(report, action)
			continue
		}

		if blocker, blocked := blockingContact(ch.Desired, failedContacts); blocked {
			e.skip(report, action, fmt.Sprintf("contact %s was not created", blocker))
			markStaleRefs(ch.Remote, stale)
			continue
		}

		switch {
		case ch.Remote == nil:
			e.logger.Printf("creating monitor %s", ch.Desired)
			id, err := e.provider.CreateMonitor(ctx, ch.Desired)
			if err != nil {
				e.fail(report, action, err)
				continue
			}
			ch.Desired.RemoteID = id
			report.Created = append(report.Created, action)

		case ch.Replace:
			// The provider cannot change a monitor's type: delete the old
			// monitor, then create the replacement.
			e.logger.Printf("replacing monitor %s (type %s -> %s)", ch.Desired.FriendlyName, ch.Remote.Type, ch.Desired.Type)
			if err := e.provider.DeleteMonitor(ctx, ch.Remote.RemoteID); err != nil {
				e.fail(report, action, err)
				markStaleRefs(ch.Remote, stale)
				continue
			}
			id, err := e.provider.CreateMonitor(ctx, ch.Desired)
			if err != nil {
				e.fail(report, action, err)
				continue
			}
			ch.Desired.RemoteID = id
			report.Updated = append(report.Updated, action)

		default:
			e.logger.Printf("updating monitor %s: %s", ch.Desired.FriendlyName, action.Detail)
			if err := e.provider.UpdateMonitor(ctx, ch.Remote.RemoteID, ch.Desired); err != nil {
				e.fail(report, action, err)
				markStaleRefs(ch.Remote, stale)
				continue
			}
			ch.Desired.RemoteID = ch.Remote.RemoteID
			report.Updated = append(report.Updated, action)
		}
	}
}

func (e *executor) removeMonitors(ctx context.Context, ops diff.OperationSet, report *SyncReport, stale map[string]bool) {
	for _, rem := range ops.MonitorsToRemove {
		action := Action{
			Entity:  "monitor",
			Kind:    ActionDelete,
			Subject: rem.Monitor.FriendlyName,
		}
		if e.dryRun {
			e.plan(report, action)
			continue
		}
		e.logger.Printf("deleting monitor %s", rem.Monitor)
		if err := e.provider.DeleteMonitor(ctx, rem.Monitor.RemoteID); err != nil {
			e.fail(report, action, err)
			markStaleRefs(rem.Monitor, stale)
			continue
		}
		report.Deleted = append(report.Deleted, action)
	}
}

func (e *executor) plan(report *SyncReport, action Action) {
	e.logger.Printf("dry-run: would %s", action)
	report.Planned = append(report.Planned, action)
}

func (e *executor) fail(report *SyncReport, action Action, err error) {
	e.logger.Printf("failed to %s: %v", action, err)
	report.Failed = append(report.Failed, &OperationError{Action: action, Err: err})
}

func (e *executor) skip(report *SyncReport, action Action, reason string) {
	e.logger.Printf("skipping %s: %s", action, reason)
	report.Skipped = append(report.Skipped, SkippedOperation{Action: action, Reason: reason})
}

func monitorChangeAction(ch diff.MonitorChange) Action {
	action := Action{Entity: "monitor", Subject: ch.Desired.FriendlyName}
	switch {
	case ch.Remote == nil:
		action.Kind = ActionCreate
		action.Detail = ch.Desired.String()
	case ch.Replace:
		action.Kind = ActionReplace
		action.Detail = strings.Join(ch.Changes(), ", ")
	default:
		action.Kind = ActionUpdate
		action.Detail = strings.Join(ch.Changes(), ", ")
		if action.Detail == "" {
			// Forced update: a referenced contact is being replaced and the
			// monitor must be repointed at the new id.
			action.Detail = "reassign replaced contacts"
		}
	}
	return action
}

// blockingContact finds the first declared contact reference whose creation
// failed or whose server-side id is still unknown.
func blockingContact(m *types.Monitor, failed map[types.ContactKey]bool) (types.ContactKey, bool) {
	for _, a := range m.Contacts {
		if a.Contact == nil {
			continue
		}
		key := a.Contact.Key()
		if failed[key] || a.Contact.RemoteID == "" {
			return key, true
		}
	}
	return types.ContactKey{}, false
}

// markStaleRefs records that the remote monitor's contact references were
// not cleaned up, so contacts it references must not be deleted this run.
func markStaleRefs(remote *types.Monitor, stale map[string]bool) {
	if remote == nil {
		return
	}
	for _, a := range remote.Contacts {
		if a.RemoteContactID != "" {
			stale[a.RemoteContactID] = true
		}
	}
}
