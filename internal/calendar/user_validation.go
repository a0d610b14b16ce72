package calendar

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/Leganyst/counselling-platform/internal/model"
)

// Ошибки валидации текущего пользователя.
var (
	ErrInvalidActorID = errors.New("invalid actor id")
	ErrUnknownRole    = errors.New("unknown actor role")
)

// Actor — аутентифицированный вызывающий. Данные приходят от сервиса
// авторизации, ядро им доверяет и учётные данные не перепроверяет.
type Actor struct {
	ID   uuid.UUID
	Role model.Role
}

func (a Actor) IsAdmin() bool      { return a.Role == model.RoleAdmin }
func (a Actor) IsStudent() bool    { return a.Role == model.RoleStudent }
func (a Actor) IsCounsellor() bool { return a.Role == model.RoleCounsellor }

// ValidateActor:
//   - проверяет, что id — непустой UUID;
//   - проверяет, что роль известна;
//   - возвращает нормализованного Actor.
func ValidateActor(id, role string) (Actor, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil || uid == uuid.Nil {
		return Actor{}, ErrInvalidActorID
	}
	r, ok := model.ParseRole(strings.ToLower(strings.TrimSpace(role)))
	if !ok {
		return Actor{}, ErrUnknownRole
	}
	return Actor{ID: uid, Role: r}, nil
}
