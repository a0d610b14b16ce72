package model

// Роль пользователя в системе. Приходит из внешнего сервиса авторизации.
type Role string

const (
	RoleStudent    Role = "student"
	RoleCounsellor Role = "counsellor"
	RoleAdmin      Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleStudent, RoleCounsellor, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}
