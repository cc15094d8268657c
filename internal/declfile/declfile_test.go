package declfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/knyar/urconf/pkg/types"
	"github.com/knyar/urconf/pkg/urconf"
)

func writeDecl(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "urconf.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAndApply(t *testing.T) {
	path := writeDecl(t, `
api_key: u123-key
contacts:
  - type: email
    value: ops@x.com
  - type: sms
    value: "123456"
    name: Oncall
monitors:
  - name: web
    type: keyword
    url: https://x
    keyword: Welcome
    should_exist: false
    http_username: u
    http_password: p
    interval: 10
    contacts: [ops@x.com, Oncall]
    threshold: 10
    recurrence: 30
  - name: ssh
    type: port
    hostname: host.x
    port: 22
    contacts: [ops@x.com]
`)

	file, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if file.APIKey != "u123-key" {
		t.Fatalf("api_key = %q", file.APIKey)
	}

	cfg := urconf.New(nil)
	if err := file.Apply(cfg); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	desired := cfg.Desired()
	if len(desired.Contacts) != 2 {
		t.Fatalf("expected two contacts, got %+v", desired.Contacts)
	}
	if desired.Contacts[0].Type != types.ContactEmail || desired.Contacts[0].FriendlyName != "ops@x.com" {
		t.Fatalf("email contact must default its friendly name: %+v", desired.Contacts[0])
	}
	if desired.Contacts[1].Type != types.ContactSMS || desired.Contacts[1].FriendlyName != "Oncall" {
		t.Fatalf("sms contact wrong: %+v", desired.Contacts[1])
	}

	if len(desired.Monitors) != 2 {
		t.Fatalf("expected two monitors, got %+v", desired.Monitors)
	}
	web := desired.Monitors[0]
	if web.Type != types.MonitorKeyword || web.KeywordValue != "Welcome" || web.Interval != 600 {
		t.Fatalf("web monitor wrong: %+v", web)
	}
	if web.KeywordType != types.KeywordAlertWhenPresent {
		t.Fatalf("should_exist=false must alert on presence, got %d", web.KeywordType)
	}
	if web.HTTPUsername != "u" || web.HTTPPassword != "p" {
		t.Fatalf("web monitor auth wrong: %+v", web)
	}
	if len(web.Contacts) != 2 {
		t.Fatalf("web monitor must reference both contacts, got %+v", web.Contacts)
	}
	for _, a := range web.Contacts {
		if a.Threshold != 10 || a.Recurrence != 30 {
			t.Fatalf("alerting policy not applied: %+v", a)
		}
	}

	ssh := desired.Monitors[1]
	if ssh.Type != types.MonitorPort || ssh.Port != 22 || ssh.Interval != types.DefaultInterval {
		t.Fatalf("ssh monitor wrong: %+v", ssh)
	}
	if len(ssh.Contacts) != 1 || ssh.Contacts[0].Contact != desired.Contacts[0] {
		t.Fatalf("ssh monitor must reference the email contact, got %+v", ssh.Contacts)
	}
}

func TestApplyContactCode(t *testing.T) {
	path := writeDecl(t, `
contacts:
  - code: 11
    value: slack-hook
    name: Slack
`)
	file, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := urconf.New(nil)
	if err := file.Apply(cfg); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	contacts := cfg.Desired().Contacts
	if len(contacts) != 1 || contacts[0].Type != types.ContactType(11) {
		t.Fatalf("raw code contact not registered: %+v", contacts)
	}
}

func TestApplyRejectsTypeAndCode(t *testing.T) {
	file := &File{Contacts: []ContactDecl{{Type: "email", Code: 11, Value: "a@x.com"}}}
	err := file.Apply(urconf.New(nil))
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("type and code together must be a ValidationError, got %v", err)
	}
}

func TestApplyRejectsUnknownContactReference(t *testing.T) {
	file := &File{Monitors: []MonitorDecl{{
		Name: "ssh", Type: "port", Hostname: "h", Port: 22, Contacts: []string{"nobody"},
	}}}
	err := file.Apply(urconf.New(nil))
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("unknown contact reference must be a ValidationError, got %v", err)
	}
}

func TestApplyRejectsAmbiguousContactName(t *testing.T) {
	file := &File{
		Contacts: []ContactDecl{
			{Type: "email", Value: "a@x.com", Name: "Ops"},
			{Type: "sms", Value: "123", Name: "Ops"},
		},
		Monitors: []MonitorDecl{{
			Name: "ssh", Type: "port", Hostname: "h", Port: 22, Contacts: []string{"Ops"},
		}},
	}
	err := file.Apply(urconf.New(nil))
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ambiguous contact name must be a ValidationError, got %v", err)
	}
}

func TestApplyAllowsRepeatedIdenticalContact(t *testing.T) {
	file := &File{
		Contacts: []ContactDecl{
			{Type: "email", Value: "a@x.com"},
			{Type: "email", Value: "a@x.com"},
		},
		Monitors: []MonitorDecl{{
			Name: "ssh", Type: "port", Hostname: "h", Port: 22, Contacts: []string{"a@x.com"},
		}},
	}
	cfg := urconf.New(nil)
	if err := file.Apply(cfg); err != nil {
		t.Fatalf("identical re-declaration must not be ambiguous: %v", err)
	}
	if got := len(cfg.Desired().Contacts); got != 1 {
		t.Fatalf("expected one contact, got %d", got)
	}
}

func TestApplyRejectsUnknownMonitorType(t *testing.T) {
	file := &File{Monitors: []MonitorDecl{{Name: "x", Type: "ping", Hostname: "h"}}}
	err := file.Apply(urconf.New(nil))
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("unknown monitor type must be a ValidationError, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing declaration file")
	}
}
