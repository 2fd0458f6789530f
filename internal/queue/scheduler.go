package queue

import "errors"

// CronEntry describes one scheduled job, whether owned by an InProc
// scheduler or statically declared by an External one.
type CronEntry struct {
	ID             string                 `json:"id"`
	CronExpression string                 `json:"cron_expression"`
	JobType        string                 `json:"job_type"`
	Payload        map[string]interface{} `json:"payload"`
	Enabled        bool                   `json:"enabled"`
}

// Scheduler turns cron expressions into enqueued jobs. The InProc variant
// owns its own cron engine; the External variant reports a statically
// declared schedule that something outside this process (platform cron,
// EventBridge) actually drives.
type Scheduler interface {
	// Schedule registers a new cron entry and returns its id.
	Schedule(expr string, jobType string, payload map[string]interface{}) (string, error)

	// Unschedule removes a previously scheduled entry.
	Unschedule(id string) error

	// List returns every currently scheduled entry.
	List() []CronEntry

	// StopAll halts all scheduled firing and releases resources.
	StopAll()
}

// ErrExternallyManaged is returned by the External scheduler for any
// mutation: its entries are compiled in, not runtime-configurable.
var ErrExternallyManaged = errors.New("scheduler: entries are externally managed")
