// Package uptimerobot implements the urconf provider boundary against the
// Uptime Robot v2 API: form-encoded POSTs, a JSON status envelope, offset
// pagination on list calls, and a client-side rate limit matching the
// provider's request quota.
package uptimerobot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/knyar/urconf/pkg/types"
	"github.com/knyar/urconf/pkg/urconf"
)

// DefaultBaseURL is the production v2 API endpoint.
const DefaultBaseURL = "https://api.uptimerobot.com/v2/"

// The provider enforces roughly ten requests per minute on standard
// accounts; the default limiter stays under that with enough burst for one
// ordinary sync.
const defaultRequestsPerMinute = 10

// Config holds the static configuration for a Client.
type Config struct {
	APIKey  string
	BaseURL string
}

// Dependencies allow test overrides for HTTP client, logging, and rate
// limiting.
type Dependencies struct {
	HTTPClient *http.Client
	Logger     *log.Logger
	Limiter    *rate.Limiter
}

// Client talks to the Uptime Robot v2 API. It implements urconf.Provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *log.Logger
	limiter    *rate.Limiter
}

// NewClient builds a Client from configuration and dependencies. The API
// key must be the account's main key, not a monitor-specific one.
func NewClient(cfg Config, deps Dependencies) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(defaultRequestsPerMinute)/60, defaultRequestsPerMinute)
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/") + "/",
		apiKey:     cfg.APIKey,
		logger:     logger,
		limiter:    limiter,
	}, nil
}

// NewConfig builds a urconf configuration wired to a fresh API client.
func NewConfig(cfg Config, deps Dependencies, opts ...urconf.Option) (*urconf.Config, error) {
	client, err := NewClient(cfg, deps)
	if err != nil {
		return nil, err
	}
	return urconf.New(client, opts...), nil
}

func (c *Client) post(ctx context.Context, method string, params url.Values) (*envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &types.APIError{Method: method, Err: err}
	}

	form := url.Values{}
	for k, vs := range params {
		form[k] = vs
	}
	form.Set("api_key", c.apiKey)
	form.Set("format", "json")

	endpoint := c.baseURL + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &types.APIError{Method: method, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &types.APIError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.APIError{Method: method, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &types.APIError{Method: method, Err: fmt.Errorf("status %s", resp.Status)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &types.APIError{Method: method, Err: fmt.Errorf("decode response: %w", err)}
	}
	if env.Stat != "ok" {
		return nil, &types.APIError{Method: method, Err: errors.New(env.Error.text())}
	}
	c.logger.Printf("%s ok", method)
	return &env, nil
}

// postPaginated issues a list call repeatedly, raising the offset until
// every element has been collected.
func (c *Client) postPaginated(ctx context.Context, method string, params url.Values, collect func(*envelope)) error {
	form := url.Values{}
	for k, vs := range params {
		form[k] = vs
	}
	for {
		env, err := c.post(ctx, method, form)
		if err != nil {
			return err
		}
		collect(env)
		p := env.Pagination
		if p == nil || int(p.Total) <= int(p.Offset)+int(p.Limit) {
			return nil
		}
		form.Set("offset", strconv.Itoa(int(p.Offset)+int(p.Limit)))
	}
}

// ListContacts fetches every alert contact on the account.
func (c *Client) ListContacts(ctx context.Context) ([]*types.Contact, error) {
	var contacts []*types.Contact
	err := c.postPaginated(ctx, "getAlertContacts", url.Values{}, func(env *envelope) {
		for _, w := range env.AlertContacts {
			contacts = append(contacts, &types.Contact{
				Type:         types.ContactType(int(w.Type)),
				Value:        w.Value,
				FriendlyName: w.FriendlyName,
				RemoteID:     string(w.ID),
			})
		}
	})
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

// ListMonitors fetches every monitor on the account, including contact
// assignments.
func (c *Client) ListMonitors(ctx context.Context) ([]*types.Monitor, error) {
	params := url.Values{}
	params.Set("alert_contacts", "1")
	var monitors []*types.Monitor
	err := c.postPaginated(ctx, "getMonitors", params, func(env *envelope) {
		for _, w := range env.Monitors {
			m := &types.Monitor{
				FriendlyName: w.FriendlyName,
				Type:         types.MonitorType(int(w.Type)),
				URL:          w.URL,
				SubType:      int(w.SubType),
				Port:         int(w.Port),
				KeywordType:  int(w.KeywordType),
				KeywordValue: w.KeywordValue,
				HTTPUsername: w.HTTPUsername,
				HTTPPassword: w.HTTPPassword,
				Interval:     int(w.Interval),
				RemoteID:     string(w.ID),
			}
			for _, a := range w.AlertContacts {
				m.Contacts = append(m.Contacts, types.ContactAssignment{
					RemoteContactID: string(a.ID),
					Threshold:       int(a.Threshold),
					Recurrence:      int(a.Recurrence),
				})
			}
			monitors = append(monitors, m)
		}
	})
	if err != nil {
		return nil, err
	}
	return monitors, nil
}

// CreateContact creates an alert contact and returns its server-side id.
func (c *Client) CreateContact(ctx context.Context, contact *types.Contact) (string, error) {
	params := url.Values{}
	params.Set("type", strconv.Itoa(int(contact.Type)))
	params.Set("value", contact.Value)
	params.Set("friendly_name", contact.FriendlyName)
	env, err := c.post(ctx, "newAlertContact", params)
	if err != nil {
		return "", err
	}
	if env.AlertContact == nil || env.AlertContact.ID == "" {
		return "", &types.APIError{Method: "newAlertContact", Err: errors.New("response missing contact id")}
	}
	return string(env.AlertContact.ID), nil
}

// DeleteContact deletes an alert contact by server-side id.
func (c *Client) DeleteContact(ctx context.Context, id string) error {
	params := url.Values{}
	params.Set("id", id)
	_, err := c.post(ctx, "deleteAlertContact", params)
	return err
}

// CreateMonitor creates a monitor and returns its server-side id.
func (c *Client) CreateMonitor(ctx context.Context, m *types.Monitor) (string, error) {
	params := monitorParams(m, true)
	env, err := c.post(ctx, "newMonitor", params)
	if err != nil {
		return "", err
	}
	if env.Monitor == nil || env.Monitor.ID == "" {
		return "", &types.APIError{Method: "newMonitor", Err: errors.New("response missing monitor id")}
	}
	return string(env.Monitor.ID), nil
}

// UpdateMonitor edits an existing monitor in place. The monitor type cannot
// be changed through this call.
func (c *Client) UpdateMonitor(ctx context.Context, id string, m *types.Monitor) error {
	params := monitorParams(m, false)
	params.Set("id", id)
	_, err := c.post(ctx, "editMonitor", params)
	return err
}

// DeleteMonitor deletes a monitor by server-side id.
func (c *Client) DeleteMonitor(ctx context.Context, id string) error {
	params := url.Values{}
	params.Set("id", id)
	_, err := c.post(ctx, "deleteMonitor", params)
	return err
}

// monitorParams renders a monitor declaration as newMonitor/editMonitor
// form parameters. editMonitor rejects the type parameter.
func monitorParams(m *types.Monitor, includeType bool) url.Values {
	params := url.Values{}
	params.Set("friendly_name", m.FriendlyName)
	params.Set("url", m.URL)
	if includeType {
		params.Set("type", strconv.Itoa(int(m.Type)))
	}
	params.Set("interval", strconv.Itoa(m.Interval))
	switch m.Type {
	case types.MonitorPort:
		params.Set("sub_type", strconv.Itoa(m.SubType))
		params.Set("port", strconv.Itoa(m.Port))
	case types.MonitorKeyword:
		params.Set("keyword_type", strconv.Itoa(m.KeywordType))
		params.Set("keyword_value", m.KeywordValue)
		if m.HTTPUsername != "" {
			params.Set("http_username", m.HTTPUsername)
		}
		if m.HTTPPassword != "" {
			params.Set("http_password", m.HTTPPassword)
		}
	}
	// editMonitor must receive the parameter even when empty, otherwise
	// assignments the declaration no longer has would survive the update.
	if s := alertContactsParam(m); s != "" || !includeType {
		params.Set("alert_contacts", s)
	}
	return params
}

// alertContactsParam renders contact assignments in the
// id_threshold_recurrence-... wire format.
func alertContactsParam(m *types.Monitor) string {
	entries := make([]string, 0, len(m.Contacts))
	for _, a := range m.Contacts {
		id := a.RemoteContactID
		if a.Contact != nil && a.Contact.RemoteID != "" {
			id = a.Contact.RemoteID
		}
		if id == "" {
			continue
		}
		entries = append(entries, fmt.Sprintf("%s_%d_%d", id, a.Threshold, a.Recurrence))
	}
	sort.Strings(entries)
	return strings.Join(entries, "-")
}

var _ urconf.Provider = (*Client)(nil)
