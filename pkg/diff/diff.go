// Package diff computes the minimal operation set that transforms a remote
// account snapshot into the declared desired state. The differ only reads
// both snapshots; it never resolves server-side ids itself, it emits entity
// references that the executor resolves once creations have happened.
package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/knyar/urconf/pkg/types"
)

// ContactAddition creates one contact. Replaces is set when the creation is
// the first half of a replace: the provider cannot edit a contact in place,
// so an attribute change on a matched identity becomes create-new plus a
// deferred removal of the old contact.
type ContactAddition struct {
	Contact  *types.Contact
	Replaces *types.Contact
}

// ContactRemoval deletes one remote contact. Deferred removals complete a
// replace and must only run after every monitor operation, so that no
// monitor still references the old id when it is deleted.
type ContactRemoval struct {
	Contact  *types.Contact
	Deferred bool
}

// ContactMatch pairs a declared contact with its unchanged remote
// counterpart. No operation is needed, but the executor uses the pair to
// stamp the server-side id onto the declaration.
type ContactMatch struct {
	Desired *types.Contact
	Remote  *types.Contact
}

// MonitorChange creates or updates one monitor. Remote is nil for pure
// creations. Replace is set when the monitor type changed: the provider
// cannot change a monitor's type, so the executor deletes the old monitor
// and creates the new one.
type MonitorChange struct {
	Desired *types.Monitor
	Remote  *types.Monitor
	Replace bool
}

// MonitorRemoval deletes one remote monitor.
type MonitorRemoval struct {
	Monitor *types.Monitor
}

// MonitorMatch pairs a declared monitor with its unchanged remote
// counterpart.
type MonitorMatch struct {
	Desired *types.Monitor
	Remote  *types.Monitor
}

// OperationSet is the differ's output: every mutation needed to bring the
// remote account in line with the declaration, partitioned by entity and
// direction. Operations within one collection are mutually independent; the
// ordering constraints between collections are applied by the executor.
type OperationSet struct {
	ContactsToAdd     []ContactAddition
	ContactsToRemove  []ContactRemoval
	ContactsUnchanged []ContactMatch

	MonitorsToAddOrUpdate []MonitorChange
	MonitorsToRemove      []MonitorRemoval
	MonitorsUnchanged     []MonitorMatch
}

// Empty reports whether the set contains no mutations. Unchanged matches do
// not count: a second sync over an unchanged account yields an empty set.
func (s OperationSet) Empty() bool {
	return len(s.ContactsToAdd) == 0 &&
		len(s.ContactsToRemove) == 0 &&
		len(s.MonitorsToAddOrUpdate) == 0 &&
		len(s.MonitorsToRemove) == 0
}

// Changes describes the attribute differences driving a monitor update,
// for reports and dry-run output.
func (c MonitorChange) Changes() []string {
	if c.Remote == nil {
		return nil
	}
	var out []string
	add := func(field string, old, new any) {
		if old != new {
			out = append(out, fmt.Sprintf("%s: %v -> %v", field, old, new))
		}
	}
	add("type", c.Remote.Type, c.Desired.Type)
	add("url", c.Remote.URL, c.Desired.URL)
	add("sub_type", c.Remote.SubType, c.Desired.SubType)
	add("port", c.Remote.Port, c.Desired.Port)
	add("keyword_type", c.Remote.KeywordType, c.Desired.KeywordType)
	add("keyword_value", c.Remote.KeywordValue, c.Desired.KeywordValue)
	add("http_username", c.Remote.HTTPUsername, c.Desired.HTTPUsername)
	add("interval", c.Remote.Interval, c.Desired.Interval)
	if c.Remote.HTTPPassword != c.Desired.HTTPPassword {
		out = append(out, "http_password changed")
	}
	if rs, ds := c.Remote.ContactSignature(), c.Desired.ContactSignature(); rs != ds {
		out = append(out, fmt.Sprintf("contacts: %s -> %s", orNone(rs), orNone(ds)))
	}
	return out
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// Diff partitions both snapshots by identity and emits the operations
// needed to reconcile them. Contacts are keyed by (type, value), monitors
// by friendly name. An empty desired state against a populated remote
// snapshot yields a full-removal plan; that is valid output, not an error.
func Diff(desired, remote types.Snapshot) OperationSet {
	var ops OperationSet

	remoteContacts := make(map[types.ContactKey]*types.Contact, len(remote.Contacts))
	for _, c := range remote.Contacts {
		remoteContacts[c.Key()] = c
	}
	replacedContacts := map[types.ContactKey]bool{}
	seenContacts := make(map[types.ContactKey]bool, len(desired.Contacts))
	for _, c := range desired.Contacts {
		key := c.Key()
		seenContacts[key] = true
		rc, ok := remoteContacts[key]
		if !ok {
			ops.ContactsToAdd = append(ops.ContactsToAdd, ContactAddition{Contact: c})
			continue
		}
		if rc.FriendlyName != c.FriendlyName {
			// Identity matches but attributes drifted; the provider has no
			// contact update endpoint, so replace.
			ops.ContactsToAdd = append(ops.ContactsToAdd, ContactAddition{Contact: c, Replaces: rc})
			ops.ContactsToRemove = append(ops.ContactsToRemove, ContactRemoval{Contact: rc, Deferred: true})
			replacedContacts[key] = true
			continue
		}
		ops.ContactsUnchanged = append(ops.ContactsUnchanged, ContactMatch{Desired: c, Remote: rc})
	}
	for _, key := range sortedContactKeys(remoteContacts) {
		if !seenContacts[key] {
			ops.ContactsToRemove = append(ops.ContactsToRemove, ContactRemoval{Contact: remoteContacts[key]})
		}
	}

	remoteMonitors := make(map[string]*types.Monitor, len(remote.Monitors))
	for _, m := range remote.Monitors {
		remoteMonitors[m.FriendlyName] = m
	}
	seenMonitors := make(map[string]bool, len(desired.Monitors))
	for _, m := range desired.Monitors {
		seenMonitors[m.FriendlyName] = true
		rm, ok := remoteMonitors[m.FriendlyName]
		if !ok {
			ops.MonitorsToAddOrUpdate = append(ops.MonitorsToAddOrUpdate, MonitorChange{Desired: m})
			continue
		}
		// A monitor referencing a contact that is mid-replace needs an
		// update even when nothing else changed: the remote monitor still
		// points at the old contact id, which is about to be deleted, and
		// the new id only exists once the replacement has been created.
		if !m.SpecEquals(rm) || referencesAny(m, replacedContacts) {
			ops.MonitorsToAddOrUpdate = append(ops.MonitorsToAddOrUpdate, MonitorChange{
				Desired: m,
				Remote:  rm,
				Replace: m.Type != rm.Type,
			})
			continue
		}
		ops.MonitorsUnchanged = append(ops.MonitorsUnchanged, MonitorMatch{Desired: m, Remote: rm})
	}
	for _, name := range sortedMonitorNames(remoteMonitors) {
		if !seenMonitors[name] {
			ops.MonitorsToRemove = append(ops.MonitorsToRemove, MonitorRemoval{Monitor: remoteMonitors[name]})
		}
	}

	return ops
}

func referencesAny(m *types.Monitor, keys map[types.ContactKey]bool) bool {
	for _, a := range m.Contacts {
		if a.Contact != nil && keys[a.Contact.Key()] {
			return true
		}
	}
	return false
}

func sortedContactKeys(m map[types.ContactKey]*types.Contact) []types.ContactKey {
	keys := make([]types.ContactKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return strings.Compare(keys[i].String(), keys[j].String()) < 0
	})
	return keys
}

func sortedMonitorNames(m map[string]*types.Monitor) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
