package main

import (
	"context"
	"io"
	"sync"

	"gopkg.in/cheggaaa/pb.v1"

	"github.com/Agrid-Dev/hpelec/internal/profile"
)

// progressNotifier advances a terminal progress bar as states complete.
type progressNotifier struct {
	once sync.Once
	bar  *pb.ProgressBar
}

func newProgressNotifier(total int, w io.Writer) *progressNotifier {
	bar := pb.New(total)
	bar.Output = w
	bar.ShowSpeed = false
	bar.Prefix("states ")
	return &progressNotifier{bar: bar}
}

func (p *progressNotifier) StateDone(_ context.Context, _ string, _ profile.StateResult) {
	p.once.Do(func() { p.bar.Start() })
	p.bar.Increment()
}

// RunDone settles the bar on the reported states; skipped ones never
// reach StateDone.
func (p *progressNotifier) RunDone(_ context.Context, rep profile.Report) {
	p.once.Do(func() { p.bar.Start() })
	if n := len(rep.Results); n > 0 {
		p.bar.SetTotal(n)
		p.bar.Set(n)
	}
	p.bar.Finish()
}
