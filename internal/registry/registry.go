package registry

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/minwoo/labpilot/pkg/config"
)

// ErrNotFound is returned by Lookup for an unknown service key.
var ErrNotFound = errors.New("service not found")

// Role tags how a service participates in plan ordering. Prerequisite
// services look data up before consumer services act on it.
type Role string

const (
	RolePrerequisite Role = "prerequisite"
	RoleConsumer     Role = "consumer"
)

// Service is the immutable descriptor of one capability service.
type Service struct {
	Key              string
	Name             string
	Description      string
	BaseURL          string
	UseWhen          []string
	Role             Role
	Provides         []string
	Operations       map[string]string
	DefaultOperation string
	QueryParam       string
	Timeout          time.Duration
	Enabled          bool
}

// Operation returns the endpoint path for a logical operation name.
func (s *Service) Operation(name string) (string, bool) {
	path, ok := s.Operations[name]
	return path, ok
}

type snapshot struct {
	services []*Service
	byKey    map[string]*Service
}

// Registry holds the active descriptor set behind an atomic pointer.
// Readers always observe a complete set; Load swaps it all-or-nothing.
type Registry struct {
	current atomic.Pointer[snapshot]
}

func New() *Registry {
	r := &Registry{}
	r.current.Store(&snapshot{byKey: make(map[string]*Service)})
	return r
}

// Load validates and atomically replaces the active descriptor set. A
// malformed descriptor fails the whole load and the previous set stays
// active.
func (r *Registry) Load(cfgs []config.ServiceConfig) error {
	next := &snapshot{byKey: make(map[string]*Service, len(cfgs))}

	for i, sc := range cfgs {
		svc, err := fromConfig(sc)
		if err != nil {
			return fmt.Errorf("service %d (%q): %w", i, sc.Key, err)
		}
		if _, dup := next.byKey[svc.Key]; dup {
			return fmt.Errorf("service %d: duplicate key %q", i, svc.Key)
		}
		next.byKey[svc.Key] = svc
		next.services = append(next.services, svc)
	}

	r.current.Store(next)
	return nil
}

func fromConfig(sc config.ServiceConfig) (*Service, error) {
	if sc.Key == "" {
		return nil, errors.New("missing key")
	}
	if sc.BaseURL == "" {
		return nil, errors.New("missing base_url")
	}
	if len(sc.Operations) == 0 {
		return nil, errors.New("no operations declared")
	}

	defaultOp := sc.DefaultOperation
	if defaultOp == "" {
		// A single-operation service needs no explicit default.
		nonHealth := ""
		count := 0
		for name := range sc.Operations {
			if name == "health" {
				continue
			}
			nonHealth = name
			count++
		}
		if count != 1 {
			return nil, errors.New("missing default_operation")
		}
		defaultOp = nonHealth
	}
	if _, ok := sc.Operations[defaultOp]; !ok {
		return nil, fmt.Errorf("default_operation %q not in operations", defaultOp)
	}

	role := Role(sc.Role)
	switch role {
	case RolePrerequisite, RoleConsumer, "":
	default:
		return nil, fmt.Errorf("unknown role %q", sc.Role)
	}
	if role == RolePrerequisite && len(sc.Provides) == 0 {
		return nil, errors.New("prerequisite service declares no provided fields")
	}

	queryParam := sc.QueryParam
	if queryParam == "" {
		queryParam = "query"
	}

	return &Service{
		Key:              sc.Key,
		Name:             sc.Name,
		Description:      sc.Description,
		BaseURL:          sc.BaseURL,
		UseWhen:          sc.UseWhen,
		Role:             role,
		Provides:         sc.Provides,
		Operations:       sc.Operations,
		DefaultOperation: defaultOp,
		QueryParam:       queryParam,
		Timeout:          sc.Timeout.Std(),
		Enabled:          sc.Enabled,
	}, nil
}

// Lookup returns the descriptor for key from the current snapshot.
func (r *Registry) Lookup(key string) (*Service, error) {
	snap := r.current.Load()
	svc, ok := snap.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return svc, nil
}

// Enabled returns the enabled descriptors in insertion order, so matching
// iterates deterministically.
func (r *Registry) Enabled() []*Service {
	snap := r.current.Load()
	var out []*Service
	for _, svc := range snap.services {
		if svc.Enabled {
			out = append(out, svc)
		}
	}
	return out
}

// All returns every descriptor in insertion order.
func (r *Registry) All() []*Service {
	snap := r.current.Load()
	return append([]*Service(nil), snap.services...)
}
