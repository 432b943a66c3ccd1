package service

import (
	"errors"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
)

var (
	ErrForbidden          = errors.New("forbidden: insufficient permissions")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnknownRole        = domain.ErrUnknownRole
	ErrInvalidStatus      = domain.ErrInvalidStatus
	ErrNotPending         = domain.ErrNotPending
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// Caller identifies who triggered an operation, for audit and RBAC.
type Caller struct {
	UserID    string
	Role      domain.Role
	IPAddress string
	RequestID string
}

type AuditEntry struct {
	Caller       Caller
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	Changes      string
}
