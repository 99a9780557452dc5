package printing

import "context"

// SessionRepository stores the latest PrintJob per session
type SessionRepository interface {
	// Put validates and stores job, replacing any job under the same session.
	// It returns the stored copy with its creation time stamped.
	Put(ctx context.Context, job *PrintJob) (*PrintJob, error)
	// Get returns the live job for a session
	Get(ctx context.Context, session string) (*PrintJob, bool)
	// GetAll returns every live job keyed by session
	GetAll(ctx context.Context) map[string]*PrintJob
	// Latest returns the most recently stored live job
	Latest(ctx context.Context) (*PrintJob, bool)
}
