package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/labflow/backend/internal/domain/remote"
)

// FailFunc decides whether the n-th call (1-based) of op should fail.
type FailFunc func(op string, n int) error

// FakeLab is an in-memory implementation of the Set, Material, Container and
// Study service contracts. Query results are paged by PageSize.
type FakeLab struct {
	mu         sync.Mutex
	seq        int
	PageSize   int
	Fail       FailFunc
	sets       map[string]*remote.Set
	materials  map[string]*remote.Material
	containers []*remote.Container
	nodes      map[string]*remote.Node
	calls      map[string]int
	Destroyed  []string
}

// NewFakeLab creates an empty FakeLab
func NewFakeLab() *FakeLab {
	return &FakeLab{
		PageSize:  5,
		sets:      map[string]*remote.Set{},
		materials: map[string]*remote.Material{},
		nodes:     map[string]*remote.Node{},
		calls:     map[string]int{},
	}
}

// Sets returns the Set service facade
func (l *FakeLab) Sets() remote.SetService { return fakeSets{l} }

// Materials returns the Material service facade
func (l *FakeLab) Materials() remote.MaterialService { return fakeMaterials{l} }

// Containers returns the Container service facade
func (l *FakeLab) Containers() remote.ContainerService { return fakeContainers{l} }

// Study returns the Study service facade
func (l *FakeLab) Study() remote.StudyService { return fakeStudy{l} }

// Calls returns how many times op was invoked, e.g. "sets.create".
func (l *FakeLab) Calls(op string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[op]
}

// AddSet stores a set with the given materials and returns it.
func (l *FakeLab) AddSet(name string, locked bool, materialIDs ...string) *remote.Set {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addSetLocked(name, locked, materialIDs)
}

// AddContainer stores a container holding materialIDs, one per slot, and
// registers each material with the Material service.
func (l *FakeLab) AddContainer(barcode string, materialIDs ...string) *remote.Container {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	c := &remote.Container{ID: fmt.Sprintf("container-%d", l.seq), Barcode: barcode}
	for i, id := range materialIDs {
		c.Slots = append(c.Slots, remote.Slot{Address: fmt.Sprintf("A:%d", i+1), MaterialID: id})
		l.materials[id] = &remote.Material{ID: id, Attributes: map[string]any{"container": c.ID}}
	}
	l.containers = append(l.containers, c)
	return c
}

// AddNode stores a Study node
func (l *FakeLab) AddNode(id, name, costCode string) *remote.Node {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := &remote.Node{ID: id, Name: name, CostCode: costCode}
	l.nodes[id] = n
	return n
}

// Set returns a copy of the stored set, or nil.
func (l *FakeLab) Set(id string) *remote.Set {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sets[id]
	if !ok {
		return nil
	}
	return cloneSet(s)
}

// SetCount returns the number of live sets
func (l *FakeLab) SetCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sets)
}

func (l *FakeLab) addSetLocked(name string, locked bool, materialIDs []string) *remote.Set {
	l.seq++
	s := &remote.Set{ID: fmt.Sprintf("set-%d", l.seq), Name: name, Locked: locked}
	setMembers(s, materialIDs)
	l.sets[s.ID] = s
	return cloneSet(s)
}

func (l *FakeLab) call(op string) error {
	l.calls[op]++
	if l.Fail != nil {
		return l.Fail(op, l.calls[op])
	}
	return nil
}

func (l *FakeLab) findSet(op, id string) (*remote.Set, error) {
	if err := l.call(op); err != nil {
		return nil, err
	}
	s, ok := l.sets[id]
	if !ok {
		return nil, remote.NotFound(remote.ServiceSets, id)
	}
	return s, nil
}

func setMembers(s *remote.Set, ids []string) {
	s.Materials = nil
	for _, id := range ids {
		s.Materials = append(s.Materials, remote.SetMaterial{ID: id})
	}
	size := len(ids)
	s.Meta.Size = &size
}

func cloneSet(s *remote.Set) *remote.Set {
	c := *s
	c.Materials = slices.Clone(s.Materials)
	if s.Meta.Size != nil {
		size := *s.Meta.Size
		c.Meta.Size = &size
	}
	return &c
}

type fakeSets struct{ l *FakeLab }

func (f fakeSets) Find(_ context.Context, id string) (*remote.Set, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	s, err := f.l.findSet("sets.find", id)
	if err != nil {
		return nil, err
	}
	c := cloneSet(s)
	c.Materials = nil
	return c, nil
}

func (f fakeSets) FindWithMaterials(_ context.Context, id string) (*remote.Set, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	s, err := f.l.findSet("sets.find_with_materials", id)
	if err != nil {
		return nil, err
	}
	return cloneSet(s), nil
}

func (f fakeSets) Create(_ context.Context, name string) (*remote.Set, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	if err := f.l.call("sets.create"); err != nil {
		return nil, err
	}
	return f.l.addSetLocked(name, false, nil), nil
}

func (f fakeSets) SetMaterials(_ context.Context, id string, materialIDs []string) error {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	s, err := f.l.findSet("sets.set_materials", id)
	if err != nil {
		return err
	}
	if s.Locked {
		return &remote.ServiceError{Service: remote.ServiceSets, Operation: "set materials " + id, StatusCode: 422, Err: remote.ErrRequestFailed}
	}
	setMembers(s, materialIDs)
	return nil
}

func (f fakeSets) Update(_ context.Context, id string, update remote.SetUpdate) (*remote.Set, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	s, err := f.l.findSet("sets.update", id)
	if err != nil {
		return nil, err
	}
	if update.Owner != nil {
		s.Owner = *update.Owner
	}
	if update.Locked != nil {
		s.Locked = *update.Locked
	}
	return cloneSet(s), nil
}

func (f fakeSets) CreateLockedClone(_ context.Context, id, name string) (*remote.Set, error) {
	return f.clone("sets.create_locked_clone", id, name, true)
}

func (f fakeSets) CreateUnlockedClone(_ context.Context, id, name string) (*remote.Set, error) {
	return f.clone("sets.create_unlocked_clone", id, name, false)
}

func (f fakeSets) clone(op, id, name string, locked bool) (*remote.Set, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	s, err := f.l.findSet(op, id)
	if err != nil {
		return nil, err
	}
	return f.l.addSetLocked(name, locked, s.MaterialIDs()), nil
}

func (f fakeSets) Destroy(_ context.Context, id string) error {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	if _, err := f.l.findSet("sets.destroy", id); err != nil {
		return err
	}
	delete(f.l.sets, id)
	f.l.Destroyed = append(f.l.Destroyed, id)
	return nil
}

// fakePage pages over a fixed result slice.
type fakePage[T any] struct {
	l      *FakeLab
	op     string
	all    []T
	offset int
}

func (p *fakePage[T]) Items() []T {
	end := min(p.offset+p.l.PageSize, len(p.all))
	return p.all[p.offset:end]
}

func (p *fakePage[T]) HasNext() bool {
	return p.offset+p.l.PageSize < len(p.all)
}

func (p *fakePage[T]) Next(context.Context) (remote.Page[T], error) {
	p.l.mu.Lock()
	defer p.l.mu.Unlock()
	if err := p.l.call(p.op); err != nil {
		return nil, err
	}
	return &fakePage[T]{l: p.l, op: p.op, all: p.all, offset: p.offset + p.l.PageSize}, nil
}

func filterValues(filter remote.Filter, field string) []string {
	in, ok := filter[field].(map[string]any)
	if !ok {
		return nil
	}
	values, _ := in["$in"].([]string)
	return values
}

type fakeMaterials struct{ l *FakeLab }

func (f fakeMaterials) Find(_ context.Context, id string) (*remote.Material, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	if err := f.l.call("materials.find"); err != nil {
		return nil, err
	}
	m, ok := f.l.materials[id]
	if !ok {
		return nil, remote.NotFound(remote.ServiceMaterials, id)
	}
	return m, nil
}

func (f fakeMaterials) Where(_ context.Context, filter remote.Filter) (remote.Page[*remote.Material], error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	if err := f.l.call("materials.where"); err != nil {
		return nil, err
	}
	var found []*remote.Material
	for _, id := range filterValues(filter, "_id") {
		if m, ok := f.l.materials[id]; ok {
			found = append(found, m)
		}
	}
	return &fakePage[*remote.Material]{l: f.l, op: "materials.where", all: found}, nil
}

type fakeContainers struct{ l *FakeLab }

func (f fakeContainers) Find(_ context.Context, id string) (*remote.Container, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	if err := f.l.call("containers.find"); err != nil {
		return nil, err
	}
	for _, c := range f.l.containers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, remote.NotFound(remote.ServiceContainers, id)
}

func (f fakeContainers) Where(_ context.Context, filter remote.Filter) (remote.Page[*remote.Container], error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	if err := f.l.call("containers.where"); err != nil {
		return nil, err
	}
	wanted := filterValues(filter, "slots.material")
	var found []*remote.Container
	for _, c := range f.l.containers {
		for _, id := range c.MaterialIDs() {
			if slices.Contains(wanted, id) {
				found = append(found, c)
				break
			}
		}
	}
	return &fakePage[*remote.Container]{l: f.l, op: "containers.where", all: found}, nil
}

type fakeStudy struct{ l *FakeLab }

func (f fakeStudy) FindNode(_ context.Context, id string) (*remote.Node, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	if err := f.l.call("study.find_node"); err != nil {
		return nil, err
	}
	n, ok := f.l.nodes[id]
	if !ok {
		return nil, remote.NotFound(remote.ServiceStudy, id)
	}
	return n, nil
}
