package cli

import (
	"fmt"

	"github.com/docker/go-units"
	"github.com/rs/zerolog"
)

// pullObserver renders image pull progress as log lines, one per 10% step
// so slow pulls stay visible without flooding the console.
type pullObserver struct {
	log  zerolog.Logger
	last map[string]int
}

func newPullObserver(log zerolog.Logger) *pullObserver {
	return &pullObserver{log: log, last: make(map[string]int)}
}

func (p *pullObserver) PullStatus(ref, status string) {
	p.log.Debug().Str("image", ref).Msg(status)
}

func (p *pullObserver) PullProgress(ref string, current, total int64) {
	pct := int(current * 100 / total)
	if pct < p.last[ref]+10 {
		return
	}
	p.last[ref] = pct
	p.log.Info().
		Str("image", ref).
		Str("progress", fmt.Sprintf("%d%% (%s / %s)",
			pct,
			units.HumanSize(float64(current)),
			units.HumanSize(float64(total)))).
		Msg("pulling")
}
