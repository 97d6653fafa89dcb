package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/Agrid-Dev/hpelec/internal/dataset"
	"github.com/Agrid-Dev/hpelec/internal/profile"
)

// FakeTemperatureSource serves fixture tables keyed by state.
// Put ONLY what multiple test packages need here.
type FakeTemperatureSource struct {
	mu     sync.Mutex
	Tables map[string]*dataset.Table
	Errs   map[string]error
	Calls  []string
}

func NewFakeTemperatureSource() *FakeTemperatureSource {
	return &FakeTemperatureSource{
		Tables: map[string]*dataset.Table{},
		Errs:   map[string]error{},
	}
}

func (f *FakeTemperatureSource) Temperatures(_ context.Context, state string, year int) (*dataset.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, fmt.Sprintf("%s/%d", state, year))
	if err := f.Errs[state]; err != nil {
		return nil, err
	}
	t, ok := f.Tables[state]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", state)
	}
	return t, nil
}

// FakeStockSource serves the same puma stock map for every state.
type FakeStockSource struct {
	Pumas map[string]profile.PumaStock
	Err   error
}

func (f *FakeStockSource) Stock(_ context.Context, _ string, _ profile.BuildingClass) (map[string]profile.PumaStock, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Pumas, nil
}

// MemorySink keeps written profiles in memory, keyed by name.
type MemorySink struct {
	mu     sync.Mutex
	Tables map[string]*dataset.Table
	Err    error
}

func NewMemorySink() *MemorySink {
	return &MemorySink{Tables: map[string]*dataset.Table{}}
}

func (s *MemorySink) WriteProfile(_ context.Context, name string, t *dataset.Table) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	s.Tables[name] = t
	return "mem://" + name, nil
}

func (s *MemorySink) Get(name string) (*dataset.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.Tables[name]
	return t, ok
}

// RecordingNotifier records every notification it receives.
type RecordingNotifier struct {
	mu      sync.Mutex
	States  []profile.StateResult
	Reports []profile.Report
}

func (n *RecordingNotifier) StateDone(_ context.Context, _ string, res profile.StateResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.States = append(n.States, res)
}

func (n *RecordingNotifier) RunDone(_ context.Context, rep profile.Report) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Reports = append(n.Reports, rep)
}
