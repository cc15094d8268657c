package types

import (
	"fmt"
	"sort"
	"strings"
)

// MonitorType is the provider's numeric monitor type code.
type MonitorType int

const (
	MonitorKeyword MonitorType = 2
	MonitorPort    MonitorType = 4
)

func (t MonitorType) String() string {
	switch t {
	case MonitorKeyword:
		return "keyword"
	case MonitorPort:
		return "port"
	}
	return fmt.Sprintf("type-%d", int(t))
}

// Keyword polarity codes. The provider alerts when the keyword is present
// (1) or when it is absent (2); declaring that a keyword should exist means
// alerting on absence.
const (
	KeywordAlertWhenPresent = 1
	KeywordAlertWhenAbsent  = 2
)

// Monitoring interval bounds, in seconds, as enforced by the provider.
const (
	MinInterval     = 60
	MaxInterval     = 86400
	DefaultInterval = 300
)

// Well-known port to sub_type mapping from the Uptime Robot API; anything
// else is a custom port.
var portSubTypes = map[int]int{
	80:  1,
	443: 2,
	21:  3,
	25:  4,
	110: 5,
	143: 6,
}

const customPortSubType = 99

// PortSubType returns the provider sub_type code for a TCP port.
func PortSubType(port int) int {
	if st, ok := portSubTypes[port]; ok {
		return st
	}
	return customPortSubType
}

// ContactAssignment associates a monitor with one alert contact and its
// alerting policy. Declared assignments point at a Contact; assignments
// fetched from the provider carry only the server-side contact id until the
// snapshot links them back to fetched contacts.
type ContactAssignment struct {
	Contact         *Contact
	RemoteContactID string
	Threshold       int
	Recurrence      int
}

// Signature renders the assignment in a comparable form. Linked assignments
// compare by contact identity so that declared and fetched monitors agree
// even though only the latter know server-side ids.
func (a ContactAssignment) Signature() string {
	ref := "id:" + a.RemoteContactID
	if a.Contact != nil {
		ref = a.Contact.Key().String()
	}
	return fmt.Sprintf("%s_%d_%d", ref, a.Threshold, a.Recurrence)
}

// Monitor is a declared or fetched uptime check. URL holds the checked URL
// for keyword monitors and the hostname for port monitors. Interval is in
// seconds, matching the wire format.
type Monitor struct {
	FriendlyName string
	Type         MonitorType
	URL          string
	SubType      int
	Port         int
	KeywordType  int
	KeywordValue string
	HTTPUsername string
	HTTPPassword string
	Interval     int
	RemoteID     string
	Contacts     []ContactAssignment
}

// NewKeywordMonitor validates and builds a keyword monitor declaration.
// interval is in seconds.
func NewKeywordMonitor(name, url, keyword string, shouldExist bool, httpUsername, httpPassword string, interval int) (*Monitor, error) {
	if name == "" {
		return nil, ValidationErrorf("keyword monitor requires a name")
	}
	if url == "" {
		return nil, ValidationErrorf("keyword monitor %q requires a URL", name)
	}
	if keyword == "" {
		return nil, ValidationErrorf("keyword monitor %q requires a keyword", name)
	}
	if err := checkInterval(name, interval); err != nil {
		return nil, err
	}
	keywordType := KeywordAlertWhenPresent
	if shouldExist {
		keywordType = KeywordAlertWhenAbsent
	}
	return &Monitor{
		FriendlyName: name,
		Type:         MonitorKeyword,
		URL:          url,
		KeywordType:  keywordType,
		KeywordValue: keyword,
		HTTPUsername: httpUsername,
		HTTPPassword: httpPassword,
		Interval:     interval,
	}, nil
}

// NewPortMonitor validates and builds a port monitor declaration. interval
// is in seconds.
func NewPortMonitor(name, hostname string, port, interval int) (*Monitor, error) {
	if name == "" {
		return nil, ValidationErrorf("port monitor requires a name")
	}
	if hostname == "" {
		return nil, ValidationErrorf("port monitor %q requires a hostname", name)
	}
	if port < 1 || port > 65535 {
		return nil, ValidationErrorf("port monitor %q: port %d out of range", name, port)
	}
	if err := checkInterval(name, interval); err != nil {
		return nil, err
	}
	return &Monitor{
		FriendlyName: name,
		Type:         MonitorPort,
		URL:          hostname,
		SubType:      PortSubType(port),
		Port:         port,
		Interval:     interval,
	}, nil
}

func checkInterval(name string, interval int) error {
	if interval < MinInterval || interval > MaxInterval {
		return ValidationErrorf("monitor %q: interval %ds outside provider bounds [%d, %d]",
			name, interval, MinInterval, MaxInterval)
	}
	return nil
}

// AddContacts associates contacts with the monitor using the default
// alerting policy (alert immediately, no recurrence).
func (m *Monitor) AddContacts(contacts ...*Contact) error {
	return m.AddContactsWithPolicy(0, 0, contacts...)
}

// AddContactsWithPolicy associates contacts with an explicit alerting
// policy: threshold is how many minutes a target stays down before the
// first alert, recurrence how often the alert repeats.
func (m *Monitor) AddContactsWithPolicy(threshold, recurrence int, contacts ...*Contact) error {
	if threshold < 0 || recurrence < 0 {
		return ValidationErrorf("monitor %q: threshold and recurrence must not be negative", m.FriendlyName)
	}
	for _, c := range contacts {
		if c == nil {
			return ValidationErrorf("monitor %q: nil contact", m.FriendlyName)
		}
		m.Contacts = append(m.Contacts, ContactAssignment{
			Contact:    c,
			Threshold:  threshold,
			Recurrence: recurrence,
		})
	}
	return nil
}

// ContactSignature returns the monitor's contact assignments in a sorted,
// comparable form.
func (m *Monitor) ContactSignature() string {
	sigs := make([]string, 0, len(m.Contacts))
	for _, a := range m.Contacts {
		sigs = append(sigs, a.Signature())
	}
	sort.Strings(sigs)
	return strings.Join(sigs, "-")
}

// AttrsEqual compares every monitor attribute except contact assignments
// and server-side id.
func (m *Monitor) AttrsEqual(other *Monitor) bool {
	return m.FriendlyName == other.FriendlyName &&
		m.Type == other.Type &&
		m.URL == other.URL &&
		m.SubType == other.SubType &&
		m.Port == other.Port &&
		m.KeywordType == other.KeywordType &&
		m.KeywordValue == other.KeywordValue &&
		m.HTTPUsername == other.HTTPUsername &&
		m.HTTPPassword == other.HTTPPassword &&
		m.Interval == other.Interval
}

// SpecEquals reports whether two monitors describe the same configuration,
// including contact assignments.
func (m *Monitor) SpecEquals(other *Monitor) bool {
	return m.AttrsEqual(other) && m.ContactSignature() == other.ContactSignature()
}

func (m *Monitor) String() string {
	switch m.Type {
	case MonitorPort:
		return fmt.Sprintf("%s (%s %s:%d)", m.FriendlyName, m.Type, m.URL, m.Port)
	case MonitorKeyword:
		return fmt.Sprintf("%s (%s %q at %s)", m.FriendlyName, m.Type, m.KeywordValue, m.URL)
	}
	return fmt.Sprintf("%s (%s %s)", m.FriendlyName, m.Type, m.URL)
}
