package pipeline

import (
	"io"
	"sync"

	"github.com/jackdoerner/zeroledge/internal/ledger"
	"github.com/jackdoerner/zeroledge/internal/wire"
	"github.com/jackdoerner/zeroledge/internal/zllog"
)

// runIngest drives the ingest pool of spec §5: workers read raw incremental
// records in batches of size Batch under a shared source lock, parse them
// into scalars/points outside the lock, then insert into a shared
// id-keyed map under a separate map lock. A record that fails to parse
// ends that worker's loop (spec §7 kind 2). It runs to completion before the
// compute pool starts, so every compute worker sees a fully-populated,
// thereafter read-only incremental map (spec §5: "Incremental-data map is
// populated once during import and thereafter read-only").
func (o *Orchestrator) runIngest(workers int, incrIn io.Reader) (map[string]*ledger.IncrEntry, error) {
	reader, _, err := wire.NewIncrReader(incrIn, o.V)
	if err != nil {
		return nil, err
	}

	result := make(map[string]*ledger.IncrEntry)
	var readMu, mapMu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				readMu.Lock()
				batch := make([]*wire.RawIncrRecord, 0, o.Batch)
				for len(batch) < o.Batch {
					rec, err := reader.ReadRaw()
					if err != nil {
						break
					}
					batch = append(batch, rec)
				}
				readMu.Unlock()
				if len(batch) == 0 {
					return
				}

				for _, rec := range batch {
					id, ie, err := wire.ParseRaw(rec, o.V)
					if err != nil {
						zllog.Default().Module("pipeline").Warn("malformed incremental record, ending ingest worker loop", "id", rec.ID, "err", err)
						return
					}
					mapMu.Lock()
					result[id] = ie
					mapMu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	return result, nil
}
