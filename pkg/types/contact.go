package types

import "fmt"

// ContactType is the provider's numeric alert contact type code.
type ContactType int

// Contact type codes as documented by the Uptime Robot API. Other codes are
// valid for contacts that can only be created through the provider UI; they
// can still be declared and referenced by monitors.
const (
	ContactSMS        ContactType = 1
	ContactEmail      ContactType = 2
	ContactTwitterDM  ContactType = 3
	ContactBoxcar     ContactType = 4
	ContactWebhook    ContactType = 5
	ContactPushbullet ContactType = 6
	ContactPushover   ContactType = 9
)

var contactTypeNames = map[ContactType]string{
	ContactSMS:        "sms",
	ContactEmail:      "email",
	ContactTwitterDM:  "twitter-dm",
	ContactBoxcar:     "boxcar",
	ContactWebhook:    "webhook",
	ContactPushbullet: "pushbullet",
	ContactPushover:   "pushover",
}

func (t ContactType) String() string {
	if name, ok := contactTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type-%d", int(t))
}

// ParseContactType resolves a symbolic contact type name to its code.
func ParseContactType(name string) (ContactType, error) {
	for t, n := range contactTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, ValidationErrorf("unknown contact type %q", name)
}

// ContactKey is the identity contacts are diffed by. It matches the
// provider's own dedup semantics: a contact is the same contact as long as
// its type and destination value are unchanged, regardless of display name
// or server-side id.
type ContactKey struct {
	Type  ContactType
	Value string
}

func (k ContactKey) String() string {
	return fmt.Sprintf("%s:%s", k.Type, k.Value)
}

// Contact is a declared or fetched alert destination. RemoteID is empty on
// declarations until the executor creates the contact (or matches it against
// the remote snapshot) and writes the server-side id back.
type Contact struct {
	Type         ContactType
	Value        string
	FriendlyName string
	RemoteID     string
}

// NewContact validates and builds a contact declaration.
func NewContact(t ContactType, value, friendlyName string) (*Contact, error) {
	if t <= 0 {
		return nil, ValidationErrorf("contact type code must be positive, got %d", t)
	}
	if value == "" {
		return nil, ValidationErrorf("contact of type %s requires a value", t)
	}
	return &Contact{Type: t, Value: value, FriendlyName: friendlyName}, nil
}

// Key returns the contact's diff identity.
func (c *Contact) Key() ContactKey {
	return ContactKey{Type: c.Type, Value: c.Value}
}

func (c *Contact) String() string {
	if c.FriendlyName != "" && c.FriendlyName != c.Value {
		return fmt.Sprintf("%s (%s)", c.Key(), c.FriendlyName)
	}
	return c.Key().String()
}
