package uptimerobot

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/knyar/urconf/internal/apitest"
	"github.com/knyar/urconf/pkg/types"
	"github.com/knyar/urconf/pkg/urconf"
)

func newTestConfig(t *testing.T, fake *apitest.Server) *urconf.Config {
	t.Helper()
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	cfg, err := NewConfig(
		Config{APIKey: testAPIKey, BaseURL: srv.URL + "/v2/"},
		Dependencies{Limiter: rate.NewLimiter(rate.Inf, 1)},
	)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	return cfg
}

func declare(t *testing.T, cfg *urconf.Config) {
	t.Helper()
	ops, err := cfg.EmailContact("ops@x.com", "")
	if err != nil {
		t.Fatalf("EmailContact: %v", err)
	}
	ssh, err := cfg.PortMonitor("ssh", "host.x", 22)
	if err != nil {
		t.Fatalf("PortMonitor: %v", err)
	}
	if err := ssh.AddContactsWithPolicy(10, 30, ops); err != nil {
		t.Fatalf("AddContactsWithPolicy: %v", err)
	}
	web, err := cfg.KeywordMonitor("web", "https://x", "Welcome",
		urconf.WithInterval(10), urconf.WithHTTPAuth("u", "p"))
	if err != nil {
		t.Fatalf("KeywordMonitor: %v", err)
	}
	if err := web.AddContacts(ops); err != nil {
		t.Fatalf("AddContacts: %v", err)
	}
}

func TestEndToEndSync(t *testing.T) {
	fake := apitest.New(testAPIKey)
	cfg := newTestConfig(t, fake)
	declare(t, cfg)

	report, err := cfg.Sync(context.Background(), false)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !report.OK() {
		t.Fatalf("sync failed: %s", report.Summary())
	}
	if len(report.Created) != 3 {
		t.Fatalf("expected one contact and two monitors created, got %+v", report.Created)
	}

	contacts := fake.Contacts()
	if len(contacts) != 1 || contacts[0].Value != "ops@x.com" || contacts[0].FriendlyName != "ops@x.com" {
		t.Fatalf("unexpected account contacts: %+v", contacts)
	}
	cid := contacts[0].ID

	monitors := fake.Monitors()
	if len(monitors) != 2 {
		t.Fatalf("expected two monitors, got %+v", monitors)
	}
	for _, m := range monitors {
		switch m.FriendlyName {
		case "ssh":
			if m.Type != int(types.MonitorPort) || m.Port != 22 || m.SubType != 99 {
				t.Fatalf("ssh monitor wrong: %+v", m)
			}
			if m.AlertContacts != cid+"_10_30" {
				t.Fatalf("ssh alert contacts = %q", m.AlertContacts)
			}
		case "web":
			if m.Type != int(types.MonitorKeyword) || m.KeywordValue != "Welcome" || m.Interval != 600 {
				t.Fatalf("web monitor wrong: %+v", m)
			}
			if m.HTTPUsername != "u" || m.HTTPPassword != "p" {
				t.Fatalf("web monitor auth wrong: %+v", m)
			}
			if !strings.HasPrefix(m.AlertContacts, cid) {
				t.Fatalf("web alert contacts = %q", m.AlertContacts)
			}
		default:
			t.Fatalf("unexpected monitor %q", m.FriendlyName)
		}
	}
}

func TestSecondSyncIsEmpty(t *testing.T) {
	fake := apitest.New(testAPIKey)
	cfg := newTestConfig(t, fake)
	declare(t, cfg)

	if _, err := cfg.Sync(context.Background(), false); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	report, err := cfg.Sync(context.Background(), false)
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if !report.Empty() {
		t.Fatalf("second sync over an unchanged account must be empty, got %s", report.Summary())
	}
}

func TestSyncUpdatesDriftedMonitorInPlace(t *testing.T) {
	fake := apitest.New(testAPIKey)
	mid := fake.SeedMonitor(apitest.MonitorRecord{
		FriendlyName: "ssh",
		URL:          "host.x",
		Type:         int(types.MonitorPort),
		SubType:      3,
		Port:         21,
		Interval:     300,
	})
	cfg := newTestConfig(t, fake)

	if _, err := cfg.PortMonitor("ssh", "host.x", 22); err != nil {
		t.Fatalf("PortMonitor: %v", err)
	}

	report, err := cfg.Sync(context.Background(), false)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(report.Updated) != 1 || len(report.Created) != 0 || len(report.Deleted) != 0 {
		t.Fatalf("same-name drift must be an in-place update, got %s", report.Summary())
	}

	monitors := fake.Monitors()
	if len(monitors) != 1 || monitors[0].ID != mid {
		t.Fatalf("monitor must keep its id across the update, got %+v", monitors)
	}
	if monitors[0].Port != 22 || monitors[0].SubType != 99 {
		t.Fatalf("monitor not updated: %+v", monitors)
	}
}

func TestSyncRemovesUndeclaredEntities(t *testing.T) {
	fake := apitest.New(testAPIKey)
	fake.SeedContact(int(types.ContactBoxcar), "key", "Boxcar")
	fake.SeedMonitor(apitest.MonitorRecord{
		FriendlyName: "stale",
		URL:          "https://old",
		Type:         int(types.MonitorKeyword),
		KeywordType:  types.KeywordAlertWhenAbsent,
		KeywordValue: "x",
		Interval:     300,
	})
	cfg := newTestConfig(t, fake)

	report, err := cfg.Sync(context.Background(), false)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(report.Deleted) != 2 {
		t.Fatalf("expected both undeclared entities removed, got %s", report.Summary())
	}
	if len(fake.Contacts()) != 0 || len(fake.Monitors()) != 0 {
		t.Fatalf("account must be empty after full-removal sync")
	}
}

func TestSyncClearsDroppedAssignments(t *testing.T) {
	fake := apitest.New(testAPIKey)
	cid := fake.SeedContact(int(types.ContactEmail), "ops@x.com", "ops@x.com")
	fake.SeedMonitor(apitest.MonitorRecord{
		FriendlyName:  "ssh",
		URL:           "host.x",
		Type:          int(types.MonitorPort),
		SubType:       99,
		Port:          22,
		Interval:      300,
		AlertContacts: cid + "_0_0",
	})
	cfg := newTestConfig(t, fake)

	if _, err := cfg.EmailContact("ops@x.com", ""); err != nil {
		t.Fatalf("EmailContact: %v", err)
	}
	if _, err := cfg.PortMonitor("ssh", "host.x", 22); err != nil {
		t.Fatalf("PortMonitor: %v", err)
	}

	report, err := cfg.Sync(context.Background(), false)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(report.Updated) != 1 {
		t.Fatalf("dropping the assignment must update the monitor, got %s", report.Summary())
	}

	monitors := fake.Monitors()
	if len(monitors) != 1 || monitors[0].AlertContacts != "" {
		t.Fatalf("update must clear the remote assignment, got %+v", monitors)
	}
}

func TestSyncReplacesRenamedContact(t *testing.T) {
	fake := apitest.New(testAPIKey)
	oldID := fake.SeedContact(int(types.ContactEmail), "ops@x.com", "Old Ops")
	fake.SeedMonitor(apitest.MonitorRecord{
		FriendlyName:  "ssh",
		URL:           "host.x",
		Type:          int(types.MonitorPort),
		SubType:       99,
		Port:          22,
		Interval:      300,
		AlertContacts: oldID + "_0_0",
	})
	cfg := newTestConfig(t, fake)

	contact, err := cfg.EmailContact("ops@x.com", "New Ops")
	if err != nil {
		t.Fatalf("EmailContact: %v", err)
	}
	ssh, err := cfg.PortMonitor("ssh", "host.x", 22)
	if err != nil {
		t.Fatalf("PortMonitor: %v", err)
	}
	if err := ssh.AddContacts(contact); err != nil {
		t.Fatalf("AddContacts: %v", err)
	}

	report, err := cfg.Sync(context.Background(), false)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !report.OK() {
		t.Fatalf("sync failed: %s", report.Summary())
	}

	contacts := fake.Contacts()
	if len(contacts) != 1 || contacts[0].FriendlyName != "New Ops" {
		t.Fatalf("expected only the replacement contact, got %+v", contacts)
	}
	if contacts[0].ID == oldID {
		t.Fatalf("replacement must have a fresh id")
	}

	monitors := fake.Monitors()
	if len(monitors) != 1 || monitors[0].AlertContacts != contacts[0].ID+"_0_0" {
		t.Fatalf("monitor must reference the replacement contact: %+v", monitors)
	}
}
