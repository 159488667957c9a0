package stats

// Stats are computed by the backend and only refreshed through a full reconciliation.
type Stats struct {
	TotalEmployees int `json:"totalEmployees"`
	TotalTasks     int `json:"totalTasks"`
	CompletedTasks int `json:"completedTasks"`
	PendingTasks   int `json:"pendingTasks"`
}
