package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Agrid-Dev/hpelec/internal/heatpump"
	"github.com/Agrid-Dev/hpelec/internal/profile"
)

func TestCopCmd(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "missing.yaml")
	cmd := copCmd(&configPath)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--model", "midperfhp", "--temps=-10,5"})

	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %q", out.String())
	}
	if lines[0] != "temp_c,cop,capacity_ratio,aux_fraction" || !strings.HasPrefix(lines[1], "-10,") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestCopCmd_InvalidModel(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "missing.yaml")
	cmd := copCmd(&configPath)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--model", "superhp"})

	if err := cmd.Execute(); !errors.Is(err, heatpump.ErrInvalidModel) {
		t.Fatalf("expected ErrInvalidModel, got %v", err)
	}
}

func TestGenerateCmd_ValidationError(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "missing.yaml")
	cmd := generateCmd(&configPath)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--class", "industrial", "--no-progress", "--output-dir", t.TempDir()})

	if err := cmd.Execute(); !errors.Is(err, profile.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestProgressNotifier(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressNotifier(2, &buf)
	ctx := context.Background()

	p.StateDone(ctx, "run", profile.StateResult{State: "VT"})
	p.StateDone(ctx, "run", profile.StateResult{State: "NH"})
	p.RunDone(ctx, profile.Report{})

	if got := p.bar.Get(); got != 2 {
		t.Fatalf("expected 2 increments, got %d", got)
	}
}

func TestProgressNotifier_SkippedStatesComplete(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressNotifier(3, &buf)
	ctx := context.Background()

	p.StateDone(ctx, "run", profile.StateResult{State: "VT", Err: errors.New("boom")})
	p.RunDone(ctx, profile.Report{Results: []profile.StateResult{
		{State: "VT", Err: errors.New("boom")},
		{State: "NH", Skipped: true},
		{State: "ME", Skipped: true},
	}})

	if got, total := p.bar.Get(), p.bar.Total; got != 3 || total != 3 {
		t.Fatalf("expected bar at 3/3, got %d/%d", got, total)
	}
}

func TestProgressTotal(t *testing.T) {
	configured := []string{"VT", "NH", "ME"}
	tests := []struct {
		name   string
		states []string
		want   int
	}{
		{"configured states", nil, 3},
		{"duplicates collapse", []string{"ny", "NY", " ny "}, 1},
		{"explicit states", []string{"co", "ma"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := profile.Request{States: profile.NormalizeStates(tt.states)}
			if got := progressTotal(req, configured); got != tt.want {
				t.Fatalf("progressTotal = %d, want %d", got, tt.want)
			}
		})
	}
}
