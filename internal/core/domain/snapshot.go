package domain

import "time"

// Settings is the site-wide configuration record persisted alongside the
// collections.
type Settings struct {
	SiteName  string    `json:"siteName"`
	Locale    string    `json:"locale"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Snapshot is the complete in-memory mirror of the durable artifact. Every
// read and write moves whole snapshots; there is no per-record persistence.
type Snapshot struct {
	Accounts    []Account    `json:"accounts"`
	Projects    []Project    `json:"projects"`
	CostReports []CostReport `json:"costReports"`
	Logs        []LogEntry   `json:"logs"`
	Settings    Settings     `json:"settings"`
}

// NewSnapshot returns an empty snapshot with initialized collections.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Accounts:    []Account{},
		Projects:    []Project{},
		CostReports: []CostReport{},
		Logs:        []LogEntry{},
	}
}

// Clone deep-copies the snapshot so callers can mutate their copy without
// sharing state with the store cache.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Accounts:    make([]Account, len(s.Accounts)),
		Projects:    make([]Project, len(s.Projects)),
		CostReports: make([]CostReport, len(s.CostReports)),
		Logs:        append([]LogEntry{}, s.Logs...),
		Settings:    s.Settings,
	}
	for i, a := range s.Accounts {
		out.Accounts[i] = a.clone()
	}
	for i, p := range s.Projects {
		out.Projects[i] = p.clone()
	}
	for i, r := range s.CostReports {
		out.CostReports[i] = r.clone()
	}
	return out
}
