package domain

// Role роль пользователя, выставляемая auth-middleware
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleInstructor:
		return true
	}
	return false
}

// Identity аутентифицированный пользователь. Передаётся в каждую операцию явно.
type Identity struct {
	UserID int64
	Name   string
	Role   Role
}

func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }

// CanAuthor может ли пользователь создавать курсы и тесты
func (id Identity) CanAuthor() bool {
	return id.Role == RoleAdmin || id.Role == RoleInstructor
}
