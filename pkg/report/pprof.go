package report

import (
	"fmt"
	"io"
	"time"

	"github.com/google/pprof/profile"
)

// BuildPprof converts named stacks to a pprof profile with one wall-time
// sample per stack. Locations are leaf first, as pprof expects.
func BuildPprof(stacks []NamedStack) (*profile.Profile, error) {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "wall", Unit: "nanoseconds"}},
		PeriodType: &profile.ValueType{Type: "wall", Unit: "nanoseconds"},
		Period:     1,
		TimeNanos:  time.Now().UnixNano(),
	}

	locations := make(map[string]*profile.Location)
	locationFor := func(name string) *profile.Location {
		if loc, ok := locations[name]; ok {
			return loc
		}
		fn := &profile.Function{
			ID:         uint64(len(p.Function) + 1),
			Name:       name,
			SystemName: name,
		}
		p.Function = append(p.Function, fn)
		loc := &profile.Location{
			ID:   uint64(len(p.Location) + 1),
			Line: []profile.Line{{Function: fn}},
		}
		p.Location = append(p.Location, loc)
		locations[name] = loc
		return loc
	}

	var total int64
	for _, st := range stacks {
		if st.TimeNS == 0 || len(st.Frames) == 0 {
			continue
		}
		locs := make([]*profile.Location, len(st.Frames))
		for i, name := range st.Frames {
			locs[len(st.Frames)-1-i] = locationFor(name)
		}
		p.Sample = append(p.Sample, &profile.Sample{
			Location: locs,
			Value:    []int64{int64(st.TimeNS)},
		})
		total += int64(st.TimeNS)
	}
	p.DurationNanos = total

	if err := p.CheckValid(); err != nil {
		return nil, fmt.Errorf("cannot build pprof profile: %w", err)
	}
	return p, nil
}

// WritePprof writes the snapshot stacks as a gzip-compressed pprof protobuf.
func WritePprof(w io.Writer, snap *Snapshot) error {
	p, err := BuildPprof(snap.NamedStacks())
	if err != nil {
		return err
	}
	return p.Write(w)
}
