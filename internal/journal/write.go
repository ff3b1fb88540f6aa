package journal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/ironclad/pkg/condition"
)

// Event is one journaled check evaluation.
type Event struct {
	Seq      int64             `json:"seq"`
	RunID    string            `json:"run_id"`
	Unit     string            `json:"unit"`
	Instance string            `json:"instance,omitempty"`
	Phase    condition.Phase   `json:"phase"`
	Index    int               `json:"index"`
	Label    string            `json:"label"`
	Outcome  condition.Outcome `json:"outcome"`
	Detail   string            `json:"detail,omitempty"`
}

// WriteEvent journals a single event, stamping it with the journal's
// run ID and the next seq.
func (j *Journal) WriteEvent(ctx context.Context, ev condition.CheckEvent) (Event, error) {
	row := Event{
		Seq:      j.clock.Next(),
		RunID:    j.runID,
		Unit:     ev.Unit,
		Instance: ev.Instance,
		Phase:    ev.Phase,
		Index:    ev.Index,
		Label:    ev.Label,
		Outcome:  ev.Outcome,
		Detail:   ev.Detail,
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO check_events (seq, run_id, unit, instance, phase, cond_index, label, outcome, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.Seq, row.RunID, row.Unit, row.Instance, string(row.Phase), row.Index, row.Label, string(row.Outcome), row.Detail)
	if err != nil {
		return Event{}, fmt.Errorf("write check event seq=%d: %w", row.Seq, err)
	}
	return row, nil
}

// Observe implements condition.Observer.
//
// Observers must not fail the invocation they observe, so write errors
// are logged with full event context and dropped. The enforcement
// outcome is already decided by the time the journal hears about it.
func (j *Journal) Observe(ev condition.CheckEvent) {
	if _, err := j.WriteEvent(context.Background(), ev); err != nil {
		slog.Error("journal write failed",
			"error", err,
			"unit", ev.Unit,
			"instance", ev.Instance,
			"phase", string(ev.Phase),
			"index", ev.Index,
			"outcome", string(ev.Outcome),
		)
	}
}

var _ condition.Observer = (*Journal)(nil)
