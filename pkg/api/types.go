package api

import (
	"github.com/canonmap/canonmap/pkg/routine"
	"github.com/canonmap/canonmap/pkg/schedule"
	"github.com/canonmap/canonmap/pkg/store"
)

// Finding is one validation message with its acknowledgement state
// for the current week.
type Finding struct {
	Message      string `json:"message"`
	Hash         string `json:"hash"`
	Acknowledged bool   `json:"acknowledged"`
	Reason       string `json:"reason,omitempty"`
}

// VacationCheck reports the pre-vacation hardening state.
type VacationCheck struct {
	Active bool     `json:"active"`
	Gaps   []string `json:"gaps,omitempty"`
}

// ValidateResponse is the result of one validation run.
type ValidateResponse struct {
	Errors   []Finding     `json:"errors"`
	Warnings []Finding     `json:"warnings"`
	Summary  Summary       `json:"summary"`
	Vacation VacationCheck `json:"vacation"`
}

// Summary counts a run's findings.
type Summary struct {
	Errors             int `json:"errors"`
	Warnings           int `json:"warnings"`
	AcknowledgedErrors int `json:"acknowledgedErrors"`
}

// RoutineResponse is the full routine dashboard state.
type RoutineResponse struct {
	TodayKey     string                `json:"todayKey"`
	WeekKey      string                `json:"weekKey"`
	NewDay       bool                  `json:"newDay"`
	NewWeek      bool                  `json:"newWeek"`
	Daily        map[string]bool       `json:"daily"`
	Weekly       map[string]bool       `json:"weekly"`
	WeeklyTasks  []routine.WeeklyTask  `json:"weeklyTasks"`
	DueTasks     []schedule.DueTask    `json:"dueTasks"`
	TotalTasks   int                   `json:"totalTasks"`
	Threshold    int                   `json:"threshold"`
	DailyStreak  int                   `json:"dailyStreak"`
	WeeklyStreak int                   `json:"weeklyStreak"`
	Vacation     VacationCheck         `json:"vacation"`
}

// RoutineAction is a POST /v1/routine request.
type RoutineAction struct {
	Action   string `json:"action"` // toggle_daily, toggle_weekly, complete_field, reset_today
	TaskID   string `json:"taskId,omitempty"`
	NodeID   string `json:"nodeId,omitempty"`
	FieldKey string `json:"fieldKey,omitempty"`
}

// AckRequest acknowledges one finding for the current week.
type AckRequest struct {
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

// NodeRequest is the filled-in authoring form for a new node.
type NodeRequest struct {
	Type          string            `json:"type"`
	Name          string            `json:"name"`
	WhatIs        string            `json:"whatIs"`
	WhatIsNot     []string          `json:"whatIsNot"`
	NeverImplicit string            `json:"neverImplicit"`
	Status        map[string]string `json:"status"`

	// product only
	ProductOwner       string `json:"productOwner,omitempty"`
	DeliveryOwner      string `json:"deliveryOwner,omitempty"`
	TechnicalAuthority string `json:"technicalAuthority,omitempty"`
	Lifecycle          string `json:"lifecycle,omitempty"`

	// concept only
	ConceptSteward string `json:"conceptSteward,omitempty"`
	Maturity       string `json:"maturity,omitempty"`
}

// CommitInfo reports the remote commit an edit produced, if any.
type CommitInfo struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"htmlUrl"`
}

// AcksResponse lists the current week's acknowledgements.
type AcksResponse struct {
	WeekKey string                           `json:"weekKey"`
	Acks    map[string]store.Acknowledgement `json:"acks"`
}
