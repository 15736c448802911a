package fleet

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driveinsight/fleet/core/model"
)

// ErrExists is returned by Create when the identifier is already taken.
var ErrExists = errors.New("vehicle already exists")

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	Corridor model.Corridor
	Status   model.VehicleStatus
}

func (f Filter) match(v model.Vehicle) bool {
	if f.Corridor != "" && v.Corridor != f.Corridor {
		return false
	}
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	return true
}

// VehicleStore is the authoritative set of vehicles. Unknown identifiers
// yield absent results rather than errors.
type VehicleStore interface {
	Get(id string) (model.Vehicle, bool)
	List(f Filter) []model.Vehicle
	Create(v model.Vehicle) (model.Vehicle, error)
	Update(id string, p model.VehiclePatch) (model.Vehicle, bool)
	Mutate(id string, fn func(model.Vehicle) (model.VehiclePatch, bool)) (model.Vehicle, bool)
	Delete(id string) bool
}

// MemoryStore keeps vehicles and their records in memory. All mutations
// go through a single lock so concurrent writers never interleave.
type MemoryStore struct {
	mu    sync.RWMutex
	clock func() time.Time

	vehicles map[string]model.Vehicle
	routes   map[string]model.Route
	points   map[string][]model.RoutePoint
	alerts   map[string]model.Alert
	metrics  map[string]model.DailyMetrics
}

// NewMemoryStore returns an empty store. A nil clock defaults to time.Now.
func NewMemoryStore(clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{
		clock:    clock,
		vehicles: map[string]model.Vehicle{},
		routes:   map[string]model.Route{},
		points:   map[string][]model.RoutePoint{},
		alerts:   map[string]model.Alert{},
		metrics:  map[string]model.DailyMetrics{},
	}
}

func (s *MemoryStore) Get(id string) (model.Vehicle, bool) {
	s.mu.RLock()
	v, ok := s.vehicles[id]
	s.mu.RUnlock()
	return v, ok
}

func (s *MemoryStore) List(f Filter) []model.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		if f.match(v) {
			res = append(res, v)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Create inserts v and stamps LastUpdate. Legacy corridor names are
// normalised before validation.
func (s *MemoryStore) Create(v model.Vehicle) (model.Vehicle, error) {
	v.Corridor = model.NormalizeCorridor(string(v.Corridor))
	if err := v.Validate(); err != nil {
		return model.Vehicle{}, fmt.Errorf("invalid vehicle: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vehicles[v.ID]; ok {
		return model.Vehicle{}, fmt.Errorf("%s: %w", v.ID, ErrExists)
	}
	v.LastUpdate = s.clock()
	s.vehicles[v.ID] = v
	return v, nil
}

// Update merges p into the stored vehicle and refreshes LastUpdate.
// It reports false when id is unknown.
func (s *MemoryStore) Update(id string, p model.VehiclePatch) (model.Vehicle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return model.Vehicle{}, false
	}
	v = p.Apply(v)
	v.LastUpdate = s.clock()
	s.vehicles[id] = v
	return v, true
}

// Mutate derives a patch from the current record and applies it under the
// same lock, so no other writer lands in between. fn returning false leaves
// the vehicle untouched. Mutate reports whether a patch was applied.
func (s *MemoryStore) Mutate(id string, fn func(model.Vehicle) (model.VehiclePatch, bool)) (model.Vehicle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return model.Vehicle{}, false
	}
	p, apply := fn(v)
	if !apply {
		return v, false
	}
	v = p.Apply(v)
	v.LastUpdate = s.clock()
	s.vehicles[id] = v
	return v, true
}

func (s *MemoryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vehicles[id]; !ok {
		return false
	}
	delete(s.vehicles, id)
	return true
}

// Len returns the number of vehicles.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vehicles)
}

func newID() string { return uuid.NewString() }
