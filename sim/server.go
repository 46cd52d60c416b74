package sim

import (
	"fmt"
	"strings"
)

// CloudProvider identifies the cloud hosting an exchange server.
// The zero value is invalid so that an unset provider never passes validation.
type CloudProvider int

const (
	ProviderUnknown CloudProvider = iota
	ProviderAWS
	ProviderGCP
	ProviderAzure
)

// AllProviders lists the valid providers in display order.
var AllProviders = []CloudProvider{ProviderAWS, ProviderGCP, ProviderAzure}

var providerNames = map[CloudProvider]string{
	ProviderAWS:   "AWS",
	ProviderGCP:   "GCP",
	ProviderAzure: "Azure",
}

// ParseCloudProvider converts a provider tag ("AWS", "GCP", "Azure", case-insensitive)
// into a CloudProvider. Any other value is an error.
func ParseCloudProvider(s string) (CloudProvider, error) {
	for p, name := range providerNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return ProviderUnknown, fmt.Errorf("unknown cloud provider %q; valid: AWS, GCP, Azure", s)
}

// String returns the canonical tag, or "unknown".
func (p CloudProvider) String() string {
	if name, ok := providerNames[p]; ok {
		return name
	}
	return "unknown"
}

// IsValid reports whether p is one of AllProviders.
func (p CloudProvider) IsValid() bool {
	_, ok := providerNames[p]
	return ok
}

// MarshalText implements encoding.TextMarshaler. YAML, TOML and JSON all use it.
func (p CloudProvider) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("invalid cloud provider %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *CloudProvider) UnmarshalText(text []byte) error {
	parsed, err := ParseCloudProvider(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Location is the geographic position of a server.
type Location struct {
	City    string  `yaml:"city" toml:"city" json:"city"`
	Country string  `yaml:"country" toml:"country" json:"country"`
	Lat     float64 `yaml:"lat" toml:"lat" json:"lat"`
	Lon     float64 `yaml:"lon" toml:"lon" json:"lon"`
}

// Server is an exchange server endpoint. Servers are immutable once handed to a ServerSet.
type Server struct {
	ID       string        `yaml:"id" toml:"id" json:"id"`
	Name     string        `yaml:"name" toml:"name" json:"name"`
	Location Location      `yaml:"location" toml:"location" json:"location"`
	Provider CloudProvider `yaml:"cloud_provider" toml:"cloud_provider" json:"cloudProvider"`
	Region   string        `yaml:"region" toml:"region" json:"region"`
}

// ServerSet is the fixed, ordered collection of servers an engine simulates.
// Order matters: pair keys and topology tie-breaks follow it.
type ServerSet struct {
	servers []Server
	index   map[string]int
}

// NewServerSet validates servers and returns an immutable set.
// Ids must be non-empty and unique; every provider must be valid.
// An empty list is allowed and yields an empty set.
func NewServerSet(servers []Server) (*ServerSet, error) {
	set := &ServerSet{
		servers: make([]Server, len(servers)),
		index:   make(map[string]int, len(servers)),
	}
	for i, s := range servers {
		if s.ID == "" {
			return nil, fmt.Errorf("server %d: empty id", i)
		}
		if _, dup := set.index[s.ID]; dup {
			return nil, fmt.Errorf("server %d: duplicate id %q", i, s.ID)
		}
		if !s.Provider.IsValid() {
			return nil, fmt.Errorf("server %q: invalid cloud provider", s.ID)
		}
		set.servers[i] = s
		set.index[s.ID] = i
	}
	return set, nil
}

// Len returns the number of servers.
func (s *ServerSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.servers)
}

// Servers returns a copy of the servers in set order.
func (s *ServerSet) Servers() []Server {
	if s == nil {
		return nil
	}
	out := make([]Server, len(s.servers))
	copy(out, s.servers)
	return out
}

// At returns the i-th server in set order.
func (s *ServerSet) At(i int) Server {
	return s.servers[i]
}

// Lookup finds a server by id.
func (s *ServerSet) Lookup(id string) (Server, bool) {
	if s == nil {
		return Server{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return Server{}, false
	}
	return s.servers[i], true
}

// Index returns the position of id in set order, or -1.
func (s *ServerSet) Index(id string) int {
	if s == nil {
		return -1
	}
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}
