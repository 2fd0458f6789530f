package queue

// ExternalScheduler reports a compiled-in schedule that something outside
// this process actually drives (platform cron, a managed event-bus rule).
// It never fires jobs itself and rejects runtime mutation.
type ExternalScheduler struct {
	entries []CronEntry
}

func NewExternalScheduler(entries []CronEntry) *ExternalScheduler {
	return &ExternalScheduler{entries: entries}
}

func (s *ExternalScheduler) Schedule(expr string, jobType string, payload map[string]interface{}) (string, error) {
	return "", ErrExternallyManaged
}

func (s *ExternalScheduler) Unschedule(id string) error {
	return ErrExternallyManaged
}

func (s *ExternalScheduler) List() []CronEntry {
	out := make([]CronEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *ExternalScheduler) StopAll() {}
