package testutil

import (
	"context"
	"sync"

	"github.com/Agrid-Dev/hpelec/internal/heatpump"
	"github.com/Agrid-Dev/hpelec/internal/profile"
)

// FakeProfileService is a reusable fake implementing ports.ProfileService.
type FakeProfileService struct {
	mu sync.Mutex

	GenerateCalled bool
	GenerateArg    profile.Request
	GenerateReport profile.Report
	GenerateErr    error

	Default profile.Request
}

func NewFakeProfileService() *FakeProfileService {
	return &FakeProfileService{
		Default: profile.Request{Year: 2019, Class: "res", Model: "advperfhp"},
		GenerateReport: profile.Report{
			RunID: "run-1",
			Year:  2019,
			Class: profile.ClassResidential,
			Model: heatpump.ModelAdvPerf,
			Results: []profile.StateResult{
				{State: "VT", Path: "Profiles/elec_htg_ff2hp_res_VT_2019_advperfhp_mw.csv", Pumas: 4, Steps: 8760},
			},
		},
	}
}

func (f *FakeProfileService) Generate(_ context.Context, req profile.Request) (profile.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GenerateCalled = true
	f.GenerateArg = req
	return f.GenerateReport, f.GenerateErr
}

func (f *FakeProfileService) DefaultRequest() profile.Request { return f.Default }

// Called reports whether Generate ran and with which request.
func (f *FakeProfileService) Called() (bool, profile.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.GenerateCalled, f.GenerateArg
}
