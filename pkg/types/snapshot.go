package types

// Snapshot is a collection of contacts and monitors: either the declared
// desired state exported by a builder or the remote account state fetched at
// the start of a sync. Remote snapshots are fetched fresh per sync and never
// cached.
type Snapshot struct {
	Contacts []*Contact
	Monitors []*Monitor
}

// ContactByID finds a contact by its server-side id.
func (s Snapshot) ContactByID(id string) *Contact {
	if id == "" {
		return nil
	}
	for _, c := range s.Contacts {
		if c.RemoteID == id {
			return c
		}
	}
	return nil
}

// Link resolves monitor contact assignments that carry only server-side ids
// to the snapshot's contact instances, so that fetched monitors compare by
// contact identity the same way declared ones do. Assignments referencing
// ids absent from the snapshot are left unlinked and never match a declared
// assignment.
func (s Snapshot) Link() {
	for _, m := range s.Monitors {
		for i := range m.Contacts {
			a := &m.Contacts[i]
			if a.Contact == nil {
				a.Contact = s.ContactByID(a.RemoteContactID)
			}
		}
	}
}
