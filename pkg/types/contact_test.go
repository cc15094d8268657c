package types

import (
	"errors"
	"testing"
)

func TestNewContactValidation(t *testing.T) {
	cases := []struct {
		name    string
		typ     ContactType
		value   string
		wantErr bool
	}{
		{name: "email", typ: ContactEmail, value: "a@x.com"},
		{name: "opaque type code", typ: ContactType(11), value: "channel"},
		{name: "missing value", typ: ContactEmail, value: "", wantErr: true},
		{name: "zero type", typ: 0, value: "a@x.com", wantErr: true},
		{name: "negative type", typ: -2, value: "a@x.com", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewContact(tc.typ, tc.value, "name")
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got contact %v", c)
				}
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.RemoteID != "" {
				t.Fatalf("new declaration must not carry a remote id")
			}
		})
	}
}

func TestContactKeyIgnoresFriendlyName(t *testing.T) {
	a, err := NewContact(ContactEmail, "a@x.com", "Ops")
	if err != nil {
		t.Fatalf("NewContact: %v", err)
	}
	b, err := NewContact(ContactEmail, "a@x.com", "Oncall")
	if err != nil {
		t.Fatalf("NewContact: %v", err)
	}
	if a.Key() != b.Key() {
		t.Fatalf("contacts with equal (type, value) must share identity: %v vs %v", a.Key(), b.Key())
	}

	c, err := NewContact(ContactSMS, "a@x.com", "Ops")
	if err != nil {
		t.Fatalf("NewContact: %v", err)
	}
	if a.Key() == c.Key() {
		t.Fatalf("contacts of different types must not share identity")
	}
}

func TestParseContactType(t *testing.T) {
	for name, want := range map[string]ContactType{
		"sms":        ContactSMS,
		"email":      ContactEmail,
		"twitter-dm": ContactTwitterDM,
		"boxcar":     ContactBoxcar,
		"webhook":    ContactWebhook,
		"pushbullet": ContactPushbullet,
		"pushover":   ContactPushover,
	} {
		got, err := ParseContactType(name)
		if err != nil {
			t.Fatalf("ParseContactType(%q): %v", name, err)
		}
		if got != want {
			t.Fatalf("ParseContactType(%q) = %d, want %d", name, got, want)
		}
	}

	if _, err := ParseContactType("carrier-pigeon"); err == nil {
		t.Fatalf("expected error for unknown type name")
	}
}
