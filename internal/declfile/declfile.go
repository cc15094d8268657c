// Package declfile loads YAML declaration files and applies them onto a
// urconf configuration, so the CLI can drive a sync without a Go host
// script.
package declfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/knyar/urconf/pkg/types"
	"github.com/knyar/urconf/pkg/urconf"
)

// File is a parsed declaration file.
type File struct {
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Contacts []ContactDecl `yaml:"contacts"`
	Monitors []MonitorDecl `yaml:"monitors"`
}

// ContactDecl declares one alert contact. Either Type (a symbolic name
// like "email") or Code (a raw provider type code, for UI-managed contact
// types) must be set.
type ContactDecl struct {
	Type  string `yaml:"type"`
	Code  int    `yaml:"code"`
	Value string `yaml:"value"`
	Name  string `yaml:"name"`
}

// MonitorDecl declares one monitor. Contacts reference declared contacts by
// friendly name.
type MonitorDecl struct {
	Name         string   `yaml:"name"`
	Type         string   `yaml:"type"`
	URL          string   `yaml:"url"`
	Hostname     string   `yaml:"hostname"`
	Port         int      `yaml:"port"`
	Keyword      string   `yaml:"keyword"`
	ShouldExist  *bool    `yaml:"should_exist"`
	HTTPUsername string   `yaml:"http_username"`
	HTTPPassword string   `yaml:"http_password"`
	Interval     int      `yaml:"interval"` // minutes
	Contacts     []string `yaml:"contacts"`
	Threshold    int      `yaml:"threshold"`
	Recurrence   int      `yaml:"recurrence"`
}

// Load parses a declaration file.
func Load(path string) (*File, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open declaration %q: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read declaration %q: %w", path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse declaration %q: %w", path, err)
	}
	return &file, nil
}

// Apply registers every declared contact and monitor on the configuration.
// Monitor contact references are resolved by friendly name; unknown or
// ambiguous names are validation errors.
func (f *File) Apply(cfg *urconf.Config) error {
	byName := map[string]*types.Contact{}
	ambiguous := map[string]bool{}

	for _, decl := range f.Contacts {
		contact, err := applyContact(cfg, decl)
		if err != nil {
			return err
		}
		name := contact.FriendlyName
		if prev, seen := byName[name]; seen && prev != contact {
			ambiguous[name] = true
		}
		byName[name] = contact
	}

	for _, decl := range f.Monitors {
		monitor, err := applyMonitor(cfg, decl)
		if err != nil {
			return err
		}
		for _, ref := range decl.Contacts {
			if ambiguous[ref] {
				return types.ValidationErrorf("monitor %q: contact name %q is ambiguous", decl.Name, ref)
			}
			contact, ok := byName[ref]
			if !ok {
				return types.ValidationErrorf("monitor %q references unknown contact %q", decl.Name, ref)
			}
			if err := monitor.AddContactsWithPolicy(decl.Threshold, decl.Recurrence, contact); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyContact(cfg *urconf.Config, decl ContactDecl) (*types.Contact, error) {
	code := types.ContactType(decl.Code)
	if decl.Type != "" {
		if decl.Code != 0 {
			return nil, types.ValidationErrorf("contact %q: type and code are mutually exclusive", decl.Value)
		}
		parsed, err := types.ParseContactType(decl.Type)
		if err != nil {
			return nil, err
		}
		code = parsed
	}
	name := decl.Name
	if name == "" && code == types.ContactEmail {
		name = decl.Value
	}
	return cfg.Contact(code, decl.Value, name)
}

func applyMonitor(cfg *urconf.Config, decl MonitorDecl) (*types.Monitor, error) {
	var opts []urconf.MonitorOption
	if decl.Interval != 0 {
		opts = append(opts, urconf.WithInterval(decl.Interval))
	}
	switch decl.Type {
	case "port":
		return cfg.PortMonitor(decl.Name, decl.Hostname, decl.Port, opts...)
	case "keyword":
		if decl.HTTPUsername != "" || decl.HTTPPassword != "" {
			opts = append(opts, urconf.WithHTTPAuth(decl.HTTPUsername, decl.HTTPPassword))
		}
		if decl.ShouldExist != nil {
			opts = append(opts, urconf.WithShouldExist(*decl.ShouldExist))
		}
		return cfg.KeywordMonitor(decl.Name, decl.URL, decl.Keyword, opts...)
	}
	return nil, types.ValidationErrorf("monitor %q: unknown type %q", decl.Name, decl.Type)
}
