package pkg

import "time"

// Snapshot is the payload handed to a progress callback (C11). Fields
// match spec section 4.9 exactly: records emitted so far, the current
// physical line, bytes consumed from the source after decompression,
// elapsed wall time since the first record, and a derived
// rows-per-second rate.
type Snapshot struct {
	RecordsRead   uint64
	CurrentLine   int64
	BytesConsumed int64
	Elapsed       time.Duration
	RowsPerSecond float64
}

// progressNotifier fires the configured callback at most once every
// ProgressIntervalRows records, starting its clock at the first
// record emission rather than at Open — matching spec's "elapsed time
// ... started at the first record emission".
type progressNotifier struct {
	callback func(Snapshot)
	interval uint64
	start    time.Time
	started  bool
	now      func() time.Time
}

func newProgressNotifier(cfg *Config) *progressNotifier {
	return &progressNotifier{
		callback: cfg.ProgressCallback,
		interval: cfg.ProgressIntervalRows,
		now:      time.Now,
	}
}

// maybeFire is called once per emitted record. recordsRead is the
// post-increment count (1-based).
func (p *progressNotifier) maybeFire(recordsRead uint64, line int64, bytesConsumed int64) {
	if p.callback == nil {
		return
	}
	if !p.started {
		p.start = p.now()
		p.started = true
	}
	if p.interval == 0 || recordsRead%p.interval != 0 {
		return
	}
	elapsed := p.now().Sub(p.start)
	var rate float64
	if elapsed > 0 {
		rate = float64(recordsRead) / elapsed.Seconds()
	}
	p.callback(Snapshot{
		RecordsRead:   recordsRead,
		CurrentLine:   line,
		BytesConsumed: bytesConsumed,
		Elapsed:       elapsed,
		RowsPerSecond: rate,
	})
}
