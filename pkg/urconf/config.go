// Package urconf reconciles declared alert contacts and uptime monitors
// against a live Uptime Robot account. A Config accumulates declarations,
// and Sync fetches the remote state, diffs it against the declaration, and
// applies the resulting operations in dependency order.
package urconf

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/knyar/urconf/pkg/diff"
	"github.com/knyar/urconf/pkg/types"
)

// Config owns the desired-state graph for one account: every declared
// contact and monitor plus their associations. It is not safe for
// concurrent use; callers must serialize Sync calls on one instance.
type Config struct {
	provider Provider
	logger   *log.Logger
	now      func() time.Time

	contacts     map[types.ContactKey]*types.Contact
	contactOrder []types.ContactKey
	monitors     map[string]*types.Monitor
	monitorOrder []string
}

// Option adjusts Config construction.
type Option func(*Config)

// WithLogger directs mutation and dry-run logging to the given logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds an empty configuration backed by the given provider.
func New(provider Provider, opts ...Option) *Config {
	c := &Config{
		provider: provider,
		logger:   log.New(io.Discard, "", 0),
		now:      time.Now,
		contacts: map[types.ContactKey]*types.Contact{},
		monitors: map[string]*types.Monitor{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Contact declares an alert contact with an explicit provider type code.
// This is the escape hatch for contact types the create endpoint does not
// support: declare the code and value of a contact managed in the provider
// UI and monitors can still reference it.
//
// Re-declaring an identical contact returns the existing declaration;
// colliding on the same (type, value) with a different friendly name is a
// ValidationError.
func (c *Config) Contact(code types.ContactType, value, friendlyName string) (*types.Contact, error) {
	contact, err := types.NewContact(code, value, friendlyName)
	if err != nil {
		return nil, err
	}
	key := contact.Key()
	if existing, ok := c.contacts[key]; ok {
		if existing.FriendlyName == contact.FriendlyName {
			return existing, nil
		}
		return nil, types.ValidationErrorf("duplicate contact %s: friendly name %q conflicts with %q",
			key, contact.FriendlyName, existing.FriendlyName)
	}
	c.contacts[key] = contact
	c.contactOrder = append(c.contactOrder, key)
	return contact, nil
}

// EmailContact declares an email contact. The friendly name defaults to the
// address.
func (c *Config) EmailContact(email, friendlyName string) (*types.Contact, error) {
	if friendlyName == "" {
		friendlyName = email
	}
	return c.Contact(types.ContactEmail, email, friendlyName)
}

// SMSContact declares an SMS contact.
func (c *Config) SMSContact(number, friendlyName string) (*types.Contact, error) {
	return c.Contact(types.ContactSMS, number, friendlyName)
}

// BoxcarContact declares a Boxcar contact.
func (c *Config) BoxcarContact(key, friendlyName string) (*types.Contact, error) {
	return c.Contact(types.ContactBoxcar, key, friendlyName)
}

// TwitterDMContact declares a Twitter direct message contact.
func (c *Config) TwitterDMContact(value, friendlyName string) (*types.Contact, error) {
	return c.Contact(types.ContactTwitterDM, value, friendlyName)
}

// WebhookContact declares a webhook contact.
func (c *Config) WebhookContact(url, friendlyName string) (*types.Contact, error) {
	return c.Contact(types.ContactWebhook, url, friendlyName)
}

// PushbulletContact declares a Pushbullet contact.
func (c *Config) PushbulletContact(key, friendlyName string) (*types.Contact, error) {
	return c.Contact(types.ContactPushbullet, key, friendlyName)
}

// PushoverContact declares a Pushover contact.
func (c *Config) PushoverContact(key, friendlyName string) (*types.Contact, error) {
	return c.Contact(types.ContactPushover, key, friendlyName)
}

type monitorOptions struct {
	intervalMinutes int
	httpUsername    string
	httpPassword    string
	shouldExist     bool
	authSet         bool
	existSet        bool
}

// MonitorOption adjusts monitor declarations.
type MonitorOption func(*monitorOptions)

// WithInterval sets the polling period in minutes. The provider default is
// five minutes.
func WithInterval(minutes int) MonitorOption {
	return func(o *monitorOptions) {
		o.intervalMinutes = minutes
	}
}

// WithHTTPAuth sets basic auth credentials used when fetching the checked
// URL. Keyword monitors only.
func WithHTTPAuth(username, password string) MonitorOption {
	return func(o *monitorOptions) {
		o.httpUsername = username
		o.httpPassword = password
		o.authSet = true
	}
}

// WithShouldExist sets keyword polarity: true (the default) alerts when the
// keyword disappears, false alerts when it appears. Keyword monitors only.
func WithShouldExist(v bool) MonitorOption {
	return func(o *monitorOptions) {
		o.shouldExist = v
		o.existSet = true
	}
}

func applyMonitorOptions(opts []MonitorOption) monitorOptions {
	o := monitorOptions{
		intervalMinutes: types.DefaultInterval / 60,
		shouldExist:     true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// KeywordMonitor declares a monitor that fetches a URL and checks for a
// keyword. Re-declaring an identical monitor returns the existing
// declaration; a name collision with different parameters is a
// ValidationError.
func (c *Config) KeywordMonitor(name, url, keyword string, opts ...MonitorOption) (*types.Monitor, error) {
	o := applyMonitorOptions(opts)
	m, err := types.NewKeywordMonitor(name, url, keyword, o.shouldExist,
		o.httpUsername, o.httpPassword, o.intervalMinutes*60)
	if err != nil {
		return nil, err
	}
	return c.registerMonitor(m)
}

// PortMonitor declares a monitor that checks a TCP port.
func (c *Config) PortMonitor(name, hostname string, port int, opts ...MonitorOption) (*types.Monitor, error) {
	o := applyMonitorOptions(opts)
	if o.authSet {
		return nil, types.ValidationErrorf("port monitor %q: HTTP auth is only valid for keyword monitors", name)
	}
	if o.existSet {
		return nil, types.ValidationErrorf("port monitor %q: keyword polarity is only valid for keyword monitors", name)
	}
	m, err := types.NewPortMonitor(name, hostname, port, o.intervalMinutes*60)
	if err != nil {
		return nil, err
	}
	return c.registerMonitor(m)
}

func (c *Config) registerMonitor(m *types.Monitor) (*types.Monitor, error) {
	if existing, ok := c.monitors[m.FriendlyName]; ok {
		if existing.AttrsEqual(m) {
			return existing, nil
		}
		return nil, types.ValidationErrorf("duplicate monitor %q with conflicting parameters", m.FriendlyName)
	}
	c.monitors[m.FriendlyName] = m
	c.monitorOrder = append(c.monitorOrder, m.FriendlyName)
	return m, nil
}

// Desired exports the declared desired-state graph in declaration order.
func (c *Config) Desired() types.Snapshot {
	snap := types.Snapshot{
		Contacts: make([]*types.Contact, 0, len(c.contactOrder)),
		Monitors: make([]*types.Monitor, 0, len(c.monitorOrder)),
	}
	for _, key := range c.contactOrder {
		snap.Contacts = append(snap.Contacts, c.contacts[key])
	}
	for _, name := range c.monitorOrder {
		snap.Monitors = append(snap.Monitors, c.monitors[name])
	}
	return snap
}

// Sync fetches the remote account state, diffs it against the declaration,
// and applies the resulting operations. With dryRun set, mutations are
// reported but never issued. A fetch failure aborts the sync before any
// mutation: proceeding with partial remote knowledge risks destructive
// misdiffs.
func (c *Config) Sync(ctx context.Context, dryRun bool) (*SyncReport, error) {
	remote, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	ops := diff.Diff(c.Desired(), remote)
	exec := &executor{
		provider: c.provider,
		logger:   c.logger,
		dryRun:   dryRun,
		now:      c.now,
	}
	return exec.execute(ctx, ops), nil
}

func (c *Config) fetch(ctx context.Context) (types.Snapshot, error) {
	var remote types.Snapshot
	grp, groupCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		contacts, err := c.provider.ListContacts(groupCtx)
		if err != nil {
			return fmt.Errorf("fetch contacts: %w", err)
		}
		remote.Contacts = contacts
		return nil
	})
	grp.Go(func() error {
		monitors, err := c.provider.ListMonitors(groupCtx)
		if err != nil {
			return fmt.Errorf("fetch monitors: %w", err)
		}
		remote.Monitors = monitors
		return nil
	})
	if err := grp.Wait(); err != nil {
		return types.Snapshot{}, err
	}
	remote.Link()
	return remote, nil
}
