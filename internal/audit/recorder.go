package audit

import (
	"github.com/charmbracelet/log"

	"github.com/Dicklesworthstone/shellguard/internal/hook"
	"github.com/Dicklesworthstone/shellguard/internal/rules"
)

// Recorder adapts a Store to the hook.Recorder interface.
//
// Recording is best-effort: failures are logged and swallowed so the hook's
// stream and exit-code contract is never disturbed by audit problems.
type Recorder struct {
	store  *Store
	logger *log.Logger
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store *Store, logger *log.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record persists one hook result.
func (r *Recorder) Record(res hook.Result) {
	d := &Decision{
		Command:     res.Command,
		BaseCommand: rules.BaseCommand(res.Command),
		Outcome:     res.Outcome.String(),
		Reason:      res.Verdict.Reason,
		Suggestions: res.Verdict.Suggestions,
	}
	if err := r.store.Insert(d); err != nil {
		r.logger.Warn("audit record dropped", "error", err)
	}
}
