package user

import "time"

type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleEmployee Role = "Employee"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// Ref is the embedded user shape the backend populates on tasks and messages.
type Ref struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Employee struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e Employee) Ref() Ref {
	return Ref{ID: e.ID, Name: e.Name, Email: e.Email}
}

// Identity is the authenticated user of a session. It never changes while the session lives.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func (i Identity) Ref() Ref {
	return Ref{ID: i.ID, Name: i.Name, Email: i.Email}
}
