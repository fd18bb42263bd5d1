package interfaces

// ListOption is a functional option for paging List queries. Results are
// ordered by entity ID.
type ListOption func(*listConfig)

type listConfig struct {
	limit      int
	startAfter string
}

// WithLimit caps the number of returned entities. Zero means no limit.
func WithLimit(n int) ListOption {
	return func(c *listConfig) {
		c.limit = n
	}
}

// WithStartAfter resumes listing after the given entity ID
func WithStartAfter(id string) ListOption {
	return func(c *listConfig) {
		c.startAfter = id
	}
}

// BuildListConfig builds a listConfig from options
func BuildListConfig(opts ...ListOption) *listConfig {
	cfg := &listConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Limit returns the limit, or 0 if not set
func (c *listConfig) Limit() int {
	return c.limit
}

// StartAfter returns the cursor ID, or "" if not set
func (c *listConfig) StartAfter() string {
	return c.startAfter
}

// WriteOptions controls how an update is applied
type WriteOptions struct {
	// SkipTriggers suppresses the rule pipeline that normally runs on a
	// write (score recompute, auto-assignment, notifications).
	SkipTriggers bool

	// PreserveAudit keeps the stored UpdatedAt and UpdatedBy values
	PreserveAudit bool
}

// WriteOption is a functional option for updates
type WriteOption func(*WriteOptions)

// WithSkipTriggers marks the write as a raw data fix
func WithSkipTriggers() WriteOption {
	return func(o *WriteOptions) {
		o.SkipTriggers = true
	}
}

// WithPreserveAudit keeps the last modified actor and time
func WithPreserveAudit() WriteOption {
	return func(o *WriteOptions) {
		o.PreserveAudit = true
	}
}

// BuildWriteOptions builds WriteOptions from options
func BuildWriteOptions(opts ...WriteOption) WriteOptions {
	var o WriteOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
