package trace

// Summary aggregates statistics from a GenerationTrace.
type Summary struct {
	Deaths          int
	FirstDeathFrame int // -1 when nobody died
	LastDeathFrame  int // -1 when nobody died
	MeanDeathFrame  float64
	FramesRecorded  int
	DeathsPerFrame  map[int]int // frame → agents that died in it
}

// Summarize computes aggregate statistics from a GenerationTrace.
// Safe for nil or empty traces.
func Summarize(gt *GenerationTrace) *Summary {
	summary := &Summary{
		FirstDeathFrame: -1,
		LastDeathFrame:  -1,
		DeathsPerFrame:  make(map[int]int),
	}
	if gt == nil {
		return summary
	}

	summary.Deaths = len(gt.Deaths)
	summary.FramesRecorded = len(gt.Frames)
	if len(gt.Deaths) > 0 {
		total := 0
		for _, d := range gt.Deaths {
			summary.DeathsPerFrame[d.Frame]++
			total += d.Frame
			if summary.FirstDeathFrame < 0 || d.Frame < summary.FirstDeathFrame {
				summary.FirstDeathFrame = d.Frame
			}
			if d.Frame > summary.LastDeathFrame {
				summary.LastDeathFrame = d.Frame
			}
		}
		summary.MeanDeathFrame = float64(total) / float64(len(gt.Deaths))
	}

	return summary
}
