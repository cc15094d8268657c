// Package apitest provides an in-memory fake of the Uptime Robot v2 API for
// client and end-to-end tests: form-encoded POST endpoints, the stat
// envelope, offset pagination, and seedable account state.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

// ContactRecord is a stored alert contact.
type ContactRecord struct {
	ID           string
	Type         int
	Value        string
	FriendlyName string
}

// MonitorRecord is a stored monitor. AlertContacts holds the raw
// id_threshold_recurrence-... string as submitted.
type MonitorRecord struct {
	ID            string
	FriendlyName  string
	URL           string
	Type          int
	SubType       int
	Port          int
	KeywordType   int
	KeywordValue  string
	HTTPUsername  string
	HTTPPassword  string
	Interval      int
	AlertContacts string
}

// Server holds fake account state behind v2 API handlers.
type Server struct {
	mu       sync.Mutex
	apiKey   string
	nextID   int
	contacts map[string]*ContactRecord
	monitors map[string]*MonitorRecord
	calls    []string
	fail     map[string]bool
	router   *mux.Router

	// PageLimit caps list page sizes to exercise pagination; zero serves
	// everything in one page.
	PageLimit int
}

// New builds a fake server that accepts the given API key.
func New(apiKey string) *Server {
	s := &Server{
		apiKey:   apiKey,
		contacts: map[string]*ContactRecord{},
		monitors: map[string]*MonitorRecord{},
		fail:     map[string]bool{},
	}
	r := mux.NewRouter()
	r.HandleFunc("/v2/getAlertContacts", s.handle("getAlertContacts", s.getAlertContacts)).Methods(http.MethodPost)
	r.HandleFunc("/v2/getMonitors", s.handle("getMonitors", s.getMonitors)).Methods(http.MethodPost)
	r.HandleFunc("/v2/newAlertContact", s.handle("newAlertContact", s.newAlertContact)).Methods(http.MethodPost)
	r.HandleFunc("/v2/deleteAlertContact", s.handle("deleteAlertContact", s.deleteAlertContact)).Methods(http.MethodPost)
	r.HandleFunc("/v2/newMonitor", s.handle("newMonitor", s.newMonitor)).Methods(http.MethodPost)
	r.HandleFunc("/v2/editMonitor", s.handle("editMonitor", s.editMonitor)).Methods(http.MethodPost)
	r.HandleFunc("/v2/deleteMonitor", s.handle("deleteMonitor", s.deleteMonitor)).Methods(http.MethodPost)
	s.router = r
	return s
}

// Handler returns the HTTP handler to mount in an httptest server.
func (s *Server) Handler() http.Handler { return s.router }

// FailMethod makes every subsequent call to the given API method return a
// stat=fail envelope.
func (s *Server) FailMethod(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[method] = true
}

// Calls returns the API methods invoked so far, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.calls...)
}

// SeedContact stores a contact directly and returns its id.
func (s *Server) SeedContact(contactType int, value, friendlyName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	s.contacts[id] = &ContactRecord{ID: id, Type: contactType, Value: value, FriendlyName: friendlyName}
	return id
}

// SeedMonitor stores a monitor directly and returns its id.
func (s *Server) SeedMonitor(rec MonitorRecord) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.newID()
	s.monitors[rec.ID] = &rec
	return rec.ID
}

// Contacts returns stored contacts sorted by id.
func (s *Server) Contacts() []ContactRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ContactRecord, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Monitors returns stored monitors sorted by id.
func (s *Server) Monitors() []MonitorRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MonitorRecord, 0, len(s.monitors))
	for _, m := range s.monitors {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) newID() string {
	s.nextID++
	// Leading zeroes are significant in real contact ids; mimic that.
	return fmt.Sprintf("0%06d", s.nextID)
}

type handlerFunc func(form map[string]string) (map[string]any, error)

func (s *Server) handle(method string, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}

		s.mu.Lock()
		s.calls = append(s.calls, method)
		failing := s.fail[method]
		s.mu.Unlock()

		if form["api_key"] != s.apiKey {
			writeFail(w, "invalid_parameter", "api_key not found")
			return
		}
		if failing {
			writeFail(w, "internal_error", fmt.Sprintf("injected failure for %s", method))
			return
		}

		body, err := fn(form)
		if err != nil {
			writeFail(w, "invalid_parameter", err.Error())
			return
		}
		body["stat"] = "ok"
		writeJSON(w, body)
	}
}

func (s *Server) getAlertContacts(form map[string]string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]map[string]any, 0, len(s.contacts))
	for _, c := range s.contactsSorted() {
		all = append(all, map[string]any{
			"id":            c.ID,
			"friendly_name": c.FriendlyName,
			"type":          c.Type,
			"value":         c.Value,
			"status":        2,
		})
	}
	page, pg := s.page(all, form)
	return map[string]any{"alert_contacts": page, "pagination": pg}, nil
}

func (s *Server) getMonitors(form map[string]string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	withContacts := form["alert_contacts"] == "1"
	all := make([]map[string]any, 0, len(s.monitors))
	for _, m := range s.monitorsSorted() {
		entry := map[string]any{
			"id":            m.ID,
			"friendly_name": m.FriendlyName,
			"url":           m.URL,
			"type":          m.Type,
			"sub_type":      m.SubType,
			"port":          m.Port,
			"keyword_type":  m.KeywordType,
			"keyword_value": m.KeywordValue,
			"http_username": m.HTTPUsername,
			"http_password": m.HTTPPassword,
			"interval":      m.Interval,
		}
		if withContacts {
			entry["alert_contacts"] = parseAssignments(m.AlertContacts)
		}
		all = append(all, entry)
	}
	page, pg := s.page(all, form)
	return map[string]any{"monitors": page, "pagination": pg}, nil
}

func (s *Server) newAlertContact(form map[string]string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contactType, err := strconv.Atoi(form["type"])
	if err != nil || contactType <= 0 {
		return nil, fmt.Errorf("type is invalid")
	}
	if form["value"] == "" {
		return nil, fmt.Errorf("value is required")
	}
	for _, c := range s.contacts {
		if c.Type == contactType && c.Value == form["value"] {
			return nil, fmt.Errorf("alert contact already exists")
		}
	}
	id := s.newID()
	s.contacts[id] = &ContactRecord{
		ID:           id,
		Type:         contactType,
		Value:        form["value"],
		FriendlyName: form["friendly_name"],
	}
	return map[string]any{"alertcontact": map[string]any{"id": id, "status": 0}}, nil
}

func (s *Server) deleteAlertContact(form map[string]string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := form["id"]
	if _, ok := s.contacts[id]; !ok {
		return nil, fmt.Errorf("alert contact not found")
	}
	delete(s.contacts, id)
	return map[string]any{"alert_contact": map[string]any{"id": id}}, nil
}

func (s *Server) newMonitor(form map[string]string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if form["friendly_name"] == "" || form["url"] == "" || form["type"] == "" {
		return nil, fmt.Errorf("friendly_name, url and type are required")
	}
	id := s.newID()
	rec := &MonitorRecord{ID: id}
	applyMonitorForm(rec, form)
	s.monitors[id] = rec
	return map[string]any{"monitor": map[string]any{"id": id, "status": 1}}, nil
}

func (s *Server) editMonitor(form map[string]string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.monitors[form["id"]]
	if !ok {
		return nil, fmt.Errorf("monitor not found")
	}
	if form["type"] != "" {
		return nil, fmt.Errorf("type cannot be edited")
	}
	applyMonitorForm(rec, form)
	return map[string]any{"monitor": map[string]any{"id": rec.ID}}, nil
}

func (s *Server) deleteMonitor(form map[string]string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := form["id"]
	if _, ok := s.monitors[id]; !ok {
		return nil, fmt.Errorf("monitor not found")
	}
	delete(s.monitors, id)
	return map[string]any{"monitor": map[string]any{"id": id}}, nil
}

func applyMonitorForm(rec *MonitorRecord, form map[string]string) {
	set := func(key string, dst *string) {
		if v, ok := form[key]; ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := form[key]; ok {
			n, _ := strconv.Atoi(v)
			*dst = n
		}
	}
	set("friendly_name", &rec.FriendlyName)
	set("url", &rec.URL)
	setInt("type", &rec.Type)
	setInt("sub_type", &rec.SubType)
	setInt("port", &rec.Port)
	setInt("keyword_type", &rec.KeywordType)
	set("keyword_value", &rec.KeywordValue)
	set("http_username", &rec.HTTPUsername)
	set("http_password", &rec.HTTPPassword)
	setInt("interval", &rec.Interval)
	set("alert_contacts", &rec.AlertContacts)
}

func parseAssignments(raw string) []map[string]any {
	out := []map[string]any{}
	if raw == "" {
		return out
	}
	for _, entry := range strings.Split(raw, "-") {
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "_")
		a := map[string]any{"id": parts[0], "threshold": 0, "recurrence": 0}
		if len(parts) > 1 {
			a["threshold"], _ = strconv.Atoi(parts[1])
		}
		if len(parts) > 2 {
			a["recurrence"], _ = strconv.Atoi(parts[2])
		}
		out = append(out, a)
	}
	return out
}

func (s *Server) contactsSorted() []*ContactRecord {
	out := make([]*ContactRecord, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) monitorsSorted() []*MonitorRecord {
	out := make([]*MonitorRecord, 0, len(s.monitors))
	for _, m := range s.monitors {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) page(all []map[string]any, form map[string]string) ([]map[string]any, map[string]any) {
	offset, _ := strconv.Atoi(form["offset"])
	limit := s.PageLimit
	if limit <= 0 {
		limit = 50
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	if offset > len(all) {
		offset = len(all)
	}
	pg := map[string]any{"offset": offset, "limit": limit, "total": len(all)}
	return all[offset:end], pg
}

func writeJSON(w http.ResponseWriter, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
	}
}

func writeFail(w http.ResponseWriter, faultType, message string) {
	writeJSON(w, map[string]any{
		"stat": "fail",
		"error": map[string]any{
			"type":    faultType,
			"message": message,
		},
	})
}
