package uptimerobot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// The v2 API is loose about scalar types: ids arrive as strings or numbers
// depending on the entity, numeric fields may be numbers, numeric strings,
// empty strings, or null. flexID and flexInt absorb those shapes.

type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		s = strings.TrimSpace(v)
		if s == "" {
			*f = 0
			return nil
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("numeric field %q: %w", s, err)
	}
	*f = flexInt(int(n))
	return nil
}

type pagination struct {
	Offset flexInt `json:"offset"`
	Limit  flexInt `json:"limit"`
	Total  flexInt `json:"total"`
}

// apiFault is the error object of a stat=fail envelope. Some endpoints
// return a bare string instead of an object.
type apiFault struct {
	Type          string
	ParameterName string
	Message       string
	raw           string
}

func (f *apiFault) UnmarshalJSON(data []byte) error {
	var obj struct {
		Type          string `json:"type"`
		ParameterName string `json:"parameter_name"`
		Message       string `json:"message"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		f.Type = obj.Type
		f.ParameterName = obj.ParameterName
		f.Message = obj.Message
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.raw = s
		return nil
	}
	f.raw = string(data)
	return nil
}

func (f *apiFault) text() string {
	if f == nil {
		return "unknown error"
	}
	switch {
	case f.Message != "" && f.ParameterName != "":
		return fmt.Sprintf("%s (parameter %s)", f.Message, f.ParameterName)
	case f.Message != "":
		return f.Message
	case f.Type != "":
		return f.Type
	case f.raw != "":
		return f.raw
	}
	return "unknown error"
}

type wireContact struct {
	ID           flexID  `json:"id"`
	FriendlyName string  `json:"friendly_name"`
	Type         flexInt `json:"type"`
	Value        string  `json:"value"`
}

type wireMonitorContact struct {
	ID         flexID  `json:"id"`
	Threshold  flexInt `json:"threshold"`
	Recurrence flexInt `json:"recurrence"`
}

type wireMonitor struct {
	ID            flexID               `json:"id"`
	FriendlyName  string               `json:"friendly_name"`
	URL           string               `json:"url"`
	Type          flexInt              `json:"type"`
	SubType       flexInt              `json:"sub_type"`
	Port          flexInt              `json:"port"`
	KeywordType   flexInt              `json:"keyword_type"`
	KeywordValue  string               `json:"keyword_value"`
	HTTPUsername  string               `json:"http_username"`
	HTTPPassword  string               `json:"http_password"`
	Interval      flexInt              `json:"interval"`
	AlertContacts []wireMonitorContact `json:"alert_contacts"`
}

type wireCreated struct {
	ID flexID `json:"id"`
}

// envelope is the common shape of every v2 response.
type envelope struct {
	Stat          string        `json:"stat"`
	Error         *apiFault     `json:"error"`
	Pagination    *pagination   `json:"pagination"`
	AlertContacts []wireContact `json:"alert_contacts"`
	Monitors      []wireMonitor `json:"monitors"`
	AlertContact  *wireCreated  `json:"alertcontact"`
	Monitor       *wireCreated  `json:"monitor"`
}
