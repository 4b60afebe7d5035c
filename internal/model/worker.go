package model

import "time"

// DayEntry is the summed duration of all shifts that closed on one day.
type DayEntry struct {
	DayKey     string `json:"day" yaml:"day"`
	DurationMs int64  `json:"duration_ms" yaml:"duration_ms"`
}

// WorkerRecord is the stored state of one worker inside one organization.
type WorkerRecord struct {
	OrganizationID string     `json:"organization_id" yaml:"organization_id"`
	WorkerID       string     `json:"worker_id" yaml:"worker_id"`
	DisplayName    string     `json:"display_name" yaml:"display_name"`
	OnDuty         bool       `json:"on_duty" yaml:"on_duty"`
	ShiftStart     *time.Time `json:"shift_start" yaml:"shift_start"`
	ShiftEnd       *time.Time `json:"shift_end" yaml:"shift_end"`
	History        []DayEntry `json:"history" yaml:"history"`
	// Revision is bumped by the store on every write and guards
	// compare-and-swap updates.
	Revision uint64 `json:"revision" yaml:"revision"`
}

// Name returns the display name, falling back to the worker id.
func (w *WorkerRecord) Name() string {
	if w.DisplayName != "" {
		return w.DisplayName
	}
	return w.WorkerID
}

// Clone returns a deep copy of the record.
func (w *WorkerRecord) Clone() *WorkerRecord {
	c := *w
	if w.ShiftStart != nil {
		t := *w.ShiftStart
		c.ShiftStart = &t
	}
	if w.ShiftEnd != nil {
		t := *w.ShiftEnd
		c.ShiftEnd = &t
	}
	c.History = append([]DayEntry(nil), w.History...)
	return &c
}

// Settings holds the per-organization bindings written by configuration
// commands. The roster is rendered into RosterMessageID in ChannelID.
type Settings struct {
	OrganizationID  string `json:"organization_id" yaml:"organization_id"`
	EmployeeRoleID  string `json:"employee_role_id" yaml:"employee_role_id"`
	OnDutyRoleID    string `json:"on_duty_role_id" yaml:"on_duty_role_id"`
	ChannelID       string `json:"channel_id" yaml:"channel_id"`
	RosterMessageID string `json:"roster_message_id" yaml:"roster_message_id"`
}

// SettingsUpdate carries the fields to change; nil fields are left as they are.
type SettingsUpdate struct {
	EmployeeRoleID  *string `json:"employee_role_id,omitempty"`
	OnDutyRoleID    *string `json:"on_duty_role_id,omitempty"`
	ChannelID       *string `json:"channel_id,omitempty"`
	RosterMessageID *string `json:"roster_message_id,omitempty"`
}

// Apply copies the non-nil fields of u into s.
func (u SettingsUpdate) Apply(s *Settings) {
	if u.EmployeeRoleID != nil {
		s.EmployeeRoleID = *u.EmployeeRoleID
	}
	if u.OnDutyRoleID != nil {
		s.OnDutyRoleID = *u.OnDutyRoleID
	}
	if u.ChannelID != nil {
		s.ChannelID = *u.ChannelID
	}
	if u.RosterMessageID != nil {
		s.RosterMessageID = *u.RosterMessageID
	}
}
