package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrUnknownRole = errors.New("unknown role")

// Role is the closed set of dashboard roles. The upstream spells roles
// inconsistently ("ADMIN", "admin", "medical rep"); ParseRole folds every
// spelling into one of these values.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleManager     Role = "MANAGER"
	RoleSystemAdmin Role = "SYSTEM_ADMIN"
	RoleSupervisor  Role = "SUPERVISOR"
	RoleMedicalRep  Role = "MEDICAL_REP"
	RoleSalesRep    Role = "SALES_REP"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSystemAdmin, RoleSupervisor, RoleMedicalRep, RoleSalesRep:
		return true
	}
	return false
}

// ParseRole normalizes case, surrounding space and word separators.
func ParseRole(raw string) (Role, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	s = strings.Join(strings.Fields(s), "_")

	r := Role(s)
	if !r.IsValid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

// In reports whether r is one of roles. An empty list allows every role.
func (r Role) In(roles ...Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, allowed := range roles {
		if r == allowed {
			return true
		}
	}
	return false
}

type User struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Role         Role     `json:"role"`
	TeamArea     string   `json:"teamArea,omitempty"`
	TeamProducts []string `json:"teamProducts,omitempty"`
	Supervisor   *string  `json:"supervisor,omitempty"`
}

// ReviewStatus is the approval lifecycle of orders, sample requests and
// marketing activity requests.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewPending, ReviewApproved, ReviewRejected:
		return true
	}
	return false
}

// IsFinal reports whether s is terminal. Only pending rows accept mutations.
func (s ReviewStatus) IsFinal() bool {
	return s == ReviewApproved || s == ReviewRejected
}

// BookingStatus is the lifecycle of visits, which are cancelled rather
// than rejected.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingPending, BookingApproved, BookingCancelled:
		return true
	}
	return false
}

func (s BookingStatus) IsFinal() bool {
	return s == BookingApproved || s == BookingCancelled
}

// Pagination mirrors the upstream list metadata.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalCount  int `json:"totalCount"`
	Limit       int `json:"limit"`
}

// Page is one fetched slice of a server-paginated list. Statistics is set
// only when the upstream computed aggregates itself.
type Page[T any] struct {
	Rows       []T        `json:"rows"`
	Pagination Pagination `json:"pagination"`
	Statistics any        `json:"statistics,omitempty"`
}

// Reference is the session-scoped lookup data used by dependent forms.
type Reference[D any, P any] struct {
	Doctors  []D `json:"doctors"`
	Products []P `json:"products"`
}

type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
	ActionStatus AuditAction = "status"
	ActionExport AuditAction = "export"
	ActionLogin  AuditAction = "login"
	ActionLogout AuditAction = "logout"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OccurredAt time.Time `gorm:"autoCreateTime;index" json:"occurredAt"`

	UserID    string `gorm:"column:user_id;type:varchar(64);not null;index" json:"userId"`
	UserRole  Role   `gorm:"column:user_role;type:varchar(30);not null" json:"userRole"`
	IPAddress string `gorm:"column:ip_address;type:varchar(45)" json:"ipAddress"`

	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index" json:"action"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index" json:"resourceType"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(64);index" json:"resourceId"`

	RequestID string `gorm:"column:request_id;type:varchar(50);index" json:"requestId"`
	Changes   string `gorm:"column:changes;type:jsonb" json:"changes,omitempty"`
}

func (AuditLog) TableName() string {
	return "dashboard.audit_logs"
}

// Claims is what the session cookie carries.
type Claims struct {
	SessionID uuid.UUID `json:"sid"`
	UserID    string    `json:"sub"`
	Role      Role      `json:"role"`
}

// Ref is an embedded reference to another upstream document.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var (
	ErrInvalidStatus = errors.New("invalid status")
	// ErrNotPending is returned when approving or rejecting a row whose
	// status is already final.
	ErrNotPending = errors.New("only pending requests can change status")
)

// ReviewTransition validates moving a reviewable row from current to next.
func ReviewTransition(current, next ReviewStatus) error {
	if !next.IsValid() || next == ReviewPending {
		return ErrInvalidStatus
	}
	if current != ReviewPending {
		return ErrNotPending
	}
	return nil
}
