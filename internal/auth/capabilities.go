package auth

import (
	"slices"

	errors "github.com/frahmantamala/taskdesk/internal"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
)

type Tab string

const (
	TabOverview  Tab = "overview"
	TabEmployees Tab = "employees"
	TabTasks     Tab = "tasks"
	TabMessages  Tab = "messages"
	TabRegister  Tab = "register"
)

type Action string

const (
	ActionViewStats        Action = "view_stats"
	ActionViewEmployees    Action = "view_employees"
	ActionCreateEmployee   Action = "create_employee"
	ActionRegisterUser     Action = "register_user"
	ActionDeleteEmployee   Action = "delete_employee"
	ActionCreateTask       Action = "create_task"
	ActionDeleteTask       Action = "delete_task"
	ActionUpdateTaskStatus Action = "update_task_status"
	ActionCompleteTask     Action = "complete_task"
	ActionSendMessage      Action = "send_message"
	ActionMarkMessageRead  Action = "mark_message_read"
)

// Capabilities is what one role may see and do on its dashboard.
type Capabilities struct {
	Root    string
	Tabs    []Tab
	Actions []Action
}

func (c Capabilities) Can(action Action) bool {
	return slices.Contains(c.Actions, action)
}

func (c Capabilities) HasTab(tab Tab) bool {
	return slices.Contains(c.Tabs, tab)
}

var capabilityTable = map[user.Role]Capabilities{
	user.RoleAdmin: {
		Root: PathAdmin,
		Tabs: []Tab{TabOverview, TabEmployees, TabTasks, TabMessages, TabRegister},
		Actions: []Action{
			ActionViewStats,
			ActionViewEmployees,
			ActionCreateEmployee,
			ActionRegisterUser,
			ActionDeleteEmployee,
			ActionCreateTask,
			ActionDeleteTask,
			ActionSendMessage,
			ActionMarkMessageRead,
		},
	},
	user.RoleEmployee: {
		Root: PathEmployee,
		Tabs: []Tab{TabTasks, TabMessages},
		Actions: []Action{
			ActionUpdateTaskStatus,
			ActionCompleteTask,
			ActionSendMessage,
			ActionMarkMessageRead,
		},
	},
}

// CapabilitiesFor returns the role's row of the table. Unknown roles get nothing.
func CapabilitiesFor(role user.Role) Capabilities {
	c, ok := capabilityTable[role]
	if !ok {
		return Capabilities{Root: PathLogin}
	}
	return Capabilities{
		Root:    c.Root,
		Tabs:    slices.Clone(c.Tabs),
		Actions: slices.Clone(c.Actions),
	}
}

type PermissionChecker interface {
	Can(identity user.Identity, action Action) bool
	Authorize(identity user.Identity, action Action) error
}

type DefaultPermissionChecker struct{}

func NewPermissionChecker() PermissionChecker {
	return &DefaultPermissionChecker{}
}

func (c *DefaultPermissionChecker) Can(identity user.Identity, action Action) bool {
	return capabilityTable[identity.Role].Can(action)
}

// Authorize returns a forbidden error when the identity's role may not perform action.
func (c *DefaultPermissionChecker) Authorize(identity user.Identity, action Action) error {
	if !c.Can(identity, action) {
		return errors.ErrActionForbidden
	}
	return nil
}
