package client

// Finding is a validation message with its acknowledgement state.
type Finding struct {
	Message      string `json:"message"`
	Hash         string `json:"hash"`
	Acknowledged bool   `json:"acknowledged"`
	Reason       string `json:"reason,omitempty"`
}

// ValidationSummary counts findings by severity.
type ValidationSummary struct {
	Errors             int `json:"errors"`
	Warnings           int `json:"warnings"`
	AcknowledgedErrors int `json:"acknowledgedErrors"`
}

// VacationCheck reports the pre-vacation hardening state.
type VacationCheck struct {
	Active bool     `json:"active"`
	Gaps   []string `json:"gaps,omitempty"`
}

// ValidationReport is the full result of a validation run.
type ValidationReport struct {
	Errors   []Finding         `json:"errors"`
	Warnings []Finding         `json:"warnings"`
	Summary  ValidationSummary `json:"summary"`
	Vacation VacationCheck     `json:"vacation"`
}

// DueTask is a review task ranked by staleness.
type DueTask struct {
	ID             string `json:"id"`
	NodeID         string `json:"nodeId"`
	NodeName       string `json:"nodeName"`
	FieldKey       string `json:"fieldKey"`
	Label          string `json:"label"`
	NodeType       string `json:"nodeType"`
	Text           string `json:"text"`
	AgeDays        int    `json:"ageDays"`
	NeverCompleted bool   `json:"neverCompleted"`
}

// PickNode is the slice of a node the pick endpoint reports.
type PickNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Pick is the product recommended for attention.
type Pick struct {
	Node    PickNode `json:"node"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// WeeklyTask is one item of the fixed weekly checklist.
type WeeklyTask struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// RoutineState is a snapshot of the daily and weekly checklists.
type RoutineState struct {
	TodayKey     string          `json:"todayKey"`
	WeekKey      string          `json:"weekKey"`
	NewDay       bool            `json:"newDay"`
	NewWeek      bool            `json:"newWeek"`
	Daily        map[string]bool `json:"daily"`
	Weekly       map[string]bool `json:"weekly"`
	WeeklyTasks  []WeeklyTask    `json:"weeklyTasks"`
	DueTasks     []DueTask       `json:"dueTasks"`
	TotalTasks   int             `json:"totalTasks"`
	Threshold    int             `json:"threshold"`
	DailyStreak  int             `json:"dailyStreak"`
	WeeklyStreak int             `json:"weeklyStreak"`
	Vacation     VacationCheck   `json:"vacation"`
}

// RoutineAction mutates checklist state.
type RoutineAction struct {
	Action   string `json:"action"`
	TaskID   string `json:"taskId,omitempty"`
	NodeID   string `json:"nodeId,omitempty"`
	FieldKey string `json:"fieldKey,omitempty"`
}

// NodeRequest is the authoring form for a new node.
type NodeRequest struct {
	Type          string            `json:"type"`
	Name          string            `json:"name"`
	WhatIs        string            `json:"whatIs"`
	WhatIsNot     []string          `json:"whatIsNot"`
	NeverImplicit string            `json:"neverImplicit"`
	Status        map[string]string `json:"status"`

	ProductOwner       string `json:"productOwner,omitempty"`
	DeliveryOwner      string `json:"deliveryOwner,omitempty"`
	TechnicalAuthority string `json:"technicalAuthority,omitempty"`
	Lifecycle          string `json:"lifecycle,omitempty"`

	ConceptSteward string `json:"conceptSteward,omitempty"`
	Maturity       string `json:"maturity,omitempty"`
}

// CommitInfo reports the remote commit an edit produced.
type CommitInfo struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"htmlUrl"`
}

// Acknowledgement is a recorded sign-off on a finding.
type Acknowledgement struct {
	Hash      string `json:"hash"`
	Message   string `json:"message"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

// AcksResponse lists the current week's acknowledgements by hash.
type AcksResponse struct {
	WeekKey string                     `json:"weekKey"`
	Acks    map[string]Acknowledgement `json:"acks"`
}

// Status is the daemon health response.
type Status struct {
	Status string `json:"status"`
}
