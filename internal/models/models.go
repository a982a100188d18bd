package models

import (
	"time"

	"github.com/google/uuid"
)

// Client models

type Client struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	ContactEmail string     `json:"contact_email"`
	ContactName  *string    `json:"contact_name,omitempty"`
	KvkNumber    *string    `json:"kvk_number,omitempty"`
	VatNumber    *string    `json:"vat_number,omitempty"`
	Status       string     `json:"status"` // active, archived
	Plan         *string    `json:"plan,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type CreateClientRequest struct {
	Name         string  `json:"name" binding:"required"`
	ContactEmail string  `json:"contact_email" binding:"required,email"`
	ContactName  *string `json:"contact_name"`
	KvkNumber    *string `json:"kvk_number"`
	VatNumber    *string `json:"vat_number"`
}

type UpdateClientRequest struct {
	Name         *string `json:"name"`
	ContactEmail *string `json:"contact_email"`
	ContactName  *string `json:"contact_name"`
	KvkNumber    *string `json:"kvk_number"`
	VatNumber    *string `json:"vat_number"`
	Status       *string `json:"status"`
}

// User models

type User struct {
	ID           uuid.UUID  `json:"id"`
	ClientID     *uuid.UUID `json:"client_id,omitempty"` // nil for advisory staff
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never return in JSON
	FullName     string     `json:"full_name"`
	Role         string     `json:"role"` // admin, advisor, client_user
	Status       string     `json:"status"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds
	User        *User  `json:"user"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type PasswordResetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// TaxDeadline models

type TaxDeadline struct {
	ID        uuid.UUID `json:"id"`
	ClientID  uuid.UUID `json:"client_id"`
	Title     string    `json:"title"`
	TaxType   string    `json:"tax_type"` // vat, income, corporate, payroll, other
	DueDate   time.Time `json:"due_date"`
	Period    *string   `json:"period,omitempty"` // e.g. "2026-Q2"
	Status    string    `json:"status"`           // upcoming, filed, extended, missed
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateDeadlineRequest struct {
	Title   string    `json:"title" binding:"required"`
	TaxType string    `json:"tax_type" binding:"required,oneof=vat income corporate payroll other"`
	DueDate time.Time `json:"due_date" binding:"required"`
	Period  *string   `json:"period"`
	Notes   *string   `json:"notes"`
}

type UpdateDeadlineRequest struct {
	Title   *string    `json:"title"`
	TaxType *string    `json:"tax_type"`
	DueDate *time.Time `json:"due_date"`
	Period  *string    `json:"period"`
	Status  *string    `json:"status"`
	Notes   *string    `json:"notes"`
}

// Document models

type Document struct {
	ID          uuid.UUID  `json:"id"`
	ClientID    uuid.UUID  `json:"client_id"`
	UploadedBy  *uuid.UUID `json:"uploaded_by,omitempty"`
	Name        string     `json:"name"`
	StoragePath string     `json:"-"` // internal object storage key
	ContentType string     `json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
	Category    *string    `json:"category,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Export job statuses. Transitions are forward-only:
// pending -> processing -> ready | failed.
const (
	ExportStatusPending    = "pending"
	ExportStatusProcessing = "processing"
	ExportStatusReady      = "ready"
	ExportStatusFailed     = "failed"
)

// ExportJob is a persisted request to bundle a client's documents into
// a single zip archive. DocumentIDs are fixed at creation.
type ExportJob struct {
	ID          uuid.UUID   `json:"id"`
	ClientID    uuid.UUID   `json:"client_id"`
	CreatedBy   *uuid.UUID  `json:"created_by,omitempty"`
	Status      string      `json:"status"`
	DocumentIDs []uuid.UUID `json:"document_ids"`
	StorageKey  *string     `json:"storage_key,omitempty"` // set on ready
	Error       *string     `json:"error,omitempty"`       // set on failed
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type CreateExportRequest struct {
	DocumentIDs []uuid.UUID `json:"document_ids" binding:"required,min=1"`
}

// Invitation models

type Invitation struct {
	ID        uuid.UUID `json:"id"`
	ClientID  uuid.UUID `json:"client_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	TokenHash string    `json:"-"`
	InvitedBy uuid.UUID `json:"invited_by"`
	Status    string    `json:"status"` // pending, accepted, expired, revoked
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateInvitationRequest struct {
	ClientID uuid.UUID `json:"client_id" binding:"required"`
	Email    string    `json:"email" binding:"required,email"`
	Role     string    `json:"role" binding:"required,oneof=advisor client_user"`
}

type AcceptInvitationRequest struct {
	Token    string `json:"token" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// Invoice models

type Invoice struct {
	ID          uuid.UUID              `json:"id"`
	ClientID    uuid.UUID              `json:"client_id"`
	Number      string                 `json:"number"`
	AmountCents int64                  `json:"amount_cents"`
	Currency    string                 `json:"currency"`
	Status      string                 `json:"status"` // draft, sent, paid, void
	IssuedAt    *time.Time             `json:"issued_at,omitempty"`
	DueAt       *time.Time             `json:"due_at,omitempty"`
	PaidAt      *time.Time             `json:"paid_at,omitempty"`
	LineItems   map[string]interface{} `json:"line_items,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

type CreateInvoiceRequest struct {
	ClientID    uuid.UUID              `json:"client_id" binding:"required"`
	Number      string                 `json:"number" binding:"required"`
	AmountCents int64                  `json:"amount_cents" binding:"required,gt=0"`
	Currency    string                 `json:"currency" binding:"required,len=3"`
	DueAt       *time.Time             `json:"due_at"`
	LineItems   map[string]interface{} `json:"line_items"`
}

type UpdateInvoiceRequest struct {
	AmountCents *int64                 `json:"amount_cents"`
	Currency    *string                `json:"currency"`
	DueAt       *time.Time             `json:"due_at"`
	LineItems   map[string]interface{} `json:"line_items"`
}

// TimeEntry models

type TimeEntry struct {
	ID          uuid.UUID  `json:"id"`
	ClientID    uuid.UUID  `json:"client_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Description string     `json:"description"`
	Minutes     int        `json:"minutes"`
	Billable    bool       `json:"billable"`
	EntryDate   time.Time  `json:"entry_date"`
	InvoiceID   *uuid.UUID `json:"invoice_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type CreateTimeEntryRequest struct {
	ClientID    uuid.UUID `json:"client_id" binding:"required"`
	Description string    `json:"description" binding:"required"`
	Minutes     int       `json:"minutes" binding:"required,gt=0"`
	Billable    *bool     `json:"billable"`
	EntryDate   time.Time `json:"entry_date" binding:"required"`
}

type UpdateTimeEntryRequest struct {
	Description *string    `json:"description"`
	Minutes     *int       `json:"minutes"`
	Billable    *bool      `json:"billable"`
	EntryDate   *time.Time `json:"entry_date"`
}

// PlanAssignment models

type PlanAssignment struct {
	ID         uuid.UUID  `json:"id"`
	ClientID   uuid.UUID  `json:"client_id"`
	Plan       string     `json:"plan"` // basic, standard, premium
	StartsAt   time.Time  `json:"starts_at"`
	EndsAt     *time.Time `json:"ends_at,omitempty"`
	AssignedBy uuid.UUID  `json:"assigned_by"`
	CreatedAt  time.Time  `json:"created_at"`
}

type AssignPlanRequest struct {
	Plan     string     `json:"plan" binding:"required,oneof=basic standard premium"`
	StartsAt *time.Time `json:"starts_at"`
}

// AuditLog models

type AuditLog struct {
	ID         uuid.UUID              `json:"id"`
	ClientID   *uuid.UUID             `json:"client_id,omitempty"`
	UserID     *uuid.UUID             `json:"user_id,omitempty"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   *uuid.UUID             `json:"entity_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// AuditEvent is the write-side shape of an audit log entry
type AuditEvent struct {
	ClientID   *uuid.UUID
	UserID     *uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	Metadata   map[string]interface{}
}
