// Package access содержит фиксированную политику доступа к инцидентам и автопарку.
package access

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleDispatcher Role = "dispatcher"
	RoleRescuer    Role = "rescuer"
)

// Valid сообщает, известна ли роль системе
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleDispatcher, RoleRescuer:
		return true
	}
	return false
}

type Action string

const (
	ActionViewOwn      Action = "incident:view_own"
	ActionViewAll      Action = "incident:view_all"
	ActionCreate       Action = "incident:create"
	ActionUpdate       Action = "incident:update"
	ActionChangeStatus Action = "incident:change_status"
	ActionAssign       Action = "incident:assign"
	ActionDelete       Action = "incident:delete"
	ActionViewFleet    Action = "fleet:view"
	ActionManageFleet  Action = "fleet:manage"
)

// Actor - аутентифицированный пользователь, выполняющий запрос
type Actor struct {
	ID   uuid.UUID
	Role Role
}

const policyModel = `
[request_definition]
r = sub, act, owner, actor

[policy_definition]
p = sub, act, scope

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (p.sub == "*" || r.sub == p.sub) && r.act == p.act && (p.scope == "any" || r.owner == r.actor)
`

// scope "own" требует совпадения владельца ресурса и актора
const policyRules = `
p, *, incident:view_own, own
p, admin, incident:view_all, any
p, dispatcher, incident:view_all, any
p, rescuer, incident:view_all, any
p, *, incident:create, any
p, admin, incident:update, any
p, dispatcher, incident:update, any
p, admin, incident:change_status, any
p, dispatcher, incident:change_status, any
p, rescuer, incident:change_status, any
p, admin, incident:assign, any
p, dispatcher, incident:assign, any
p, admin, incident:delete, any
p, admin, fleet:view, any
p, dispatcher, fleet:view, any
p, rescuer, fleet:view, any
p, admin, fleet:manage, any
p, dispatcher, fleet:manage, any
`

// Policy принимает решения о доступе; таблица правил не меняется во время работы
type Policy struct {
	enforcer *casbin.Enforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse access model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m, stringadapter.NewAdapter(strings.TrimSpace(policyRules)))
	if err != nil {
		return nil, fmt.Errorf("failed to build access enforcer: %w", err)
	}
	return &Policy{enforcer: enforcer}, nil
}

// Can проверяет, может ли актор выполнить действие над ресурсом владельца ownerID.
// Для действий без условия владения ownerID игнорируется.
func (p *Policy) Can(actor Actor, action Action, ownerID uuid.UUID) bool {
	if !actor.Role.Valid() || actor.ID == uuid.Nil {
		return false
	}
	ok, err := p.enforcer.Enforce(string(actor.Role), string(action), ownerID.String(), actor.ID.String())
	if err != nil {
		return false
	}
	return ok
}

// CanView объединяет правила "просмотр своих" и "просмотр всех"
func (p *Policy) CanView(actor Actor, ownerID uuid.UUID) bool {
	return p.Can(actor, ActionViewAll, ownerID) || p.Can(actor, ActionViewOwn, ownerID)
}

// Authorize возвращает ErrAccessDenied, если действие запрещено
func (p *Policy) Authorize(actor Actor, action Action, ownerID uuid.UUID) error {
	if !p.Can(actor, action, ownerID) {
		return fmt.Errorf("%w: role %q may not perform %s", models.ErrAccessDenied, actor.Role, action)
	}
	return nil
}
