package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

type Role string

const (
	RoleClient       Role = "CLIENT"
	RoleProfessional Role = "PROFESSIONAL"
	RoleAdmin        Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleProfessional, RoleAdmin:
		return true
	}
	return false
}

type Plan string

const (
	PlanFree   Plan = "FREE"
	PlanPro    Plan = "PRO"
	PlanAgency Plan = "AGENCY"
)

func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanAgency:
		return true
	}
	return false
}

type JobStatus string

const (
	JobOpen       JobStatus = "OPEN"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobCancelled  JobStatus = "CANCELLED"
	JobArchived   JobStatus = "ARCHIVED"
)

// Quotable reports whether professionals may still submit or win quotes.
func (s JobStatus) Quotable() bool {
	return s == JobOpen || s == JobInProgress
}

type QuoteStatus string

const (
	QuotePending  QuoteStatus = "PENDING"
	QuoteAccepted QuoteStatus = "ACCEPTED"
	QuoteRejected QuoteStatus = "REJECTED"
)

type NotificationType string

const (
	NotificationNewOpportunity NotificationType = "NEW_OPPORTUNITY"
	NotificationNewQuote       NotificationType = "NEW_QUOTE"
	NotificationQuoteAccepted  NotificationType = "QUOTE_ACCEPTED"
	NotificationQuoteRejected  NotificationType = "QUOTE_REJECTED"
)

// Identity is the actor as asserted by the identity provider.
type Identity struct {
	UserID string
	Role   Role
	Name   string
	Email  string
}

type Profile struct {
	ID          string    `json:"id" db:"id"`
	Role        Role      `json:"role" db:"role"`
	DisplayName string    `json:"display_name" db:"display_name"`
	BrandName   string    `json:"brand_name,omitempty" db:"brand_name"`
	Location    string    `json:"location,omitempty" db:"location"`
	Email       string    `json:"email,omitempty" db:"email"`
	Phone       string    `json:"phone,omitempty" db:"phone"`
	Services    StringSet `json:"services,omitempty" db:"services"`
	Credits     int       `json:"credits" db:"credits"`
	Plan        Plan      `json:"plan" db:"plan"`
	Verified    bool      `json:"verified" db:"verified"`
	Created     int64     `json:"created_at" db:"created_at"`
	Updated     int64     `json:"updated_at" db:"updated_at"`
}

// PublicName is the name shown to counterparts; the brand wins when set.
func (p *Profile) PublicName() string {
	if strings.TrimSpace(p.BrandName) != "" {
		return p.BrandName
	}
	return p.DisplayName
}

// Offers reports whether category is one of the profile's services.
func (p *Profile) Offers(category string) bool {
	return slices.Contains(p.Services, category)
}

type Job struct {
	ID              string    `json:"id" db:"id"`
	ClientID        string    `json:"client_id" db:"client_id"`
	Category        string    `json:"category" db:"category"`
	Description     string    `json:"description" db:"description"`
	Details         Details   `json:"details,omitempty" db:"details"`
	Budget          string    `json:"budget,omitempty" db:"budget"`
	Location        string    `json:"location,omitempty" db:"location"`
	Remote          bool      `json:"remote" db:"remote"`
	Status          JobStatus `json:"status" db:"status"`
	AcceptedQuoteID *string   `json:"accepted_quote_id,omitempty" db:"accepted_quote_id"`
	Created         int64     `json:"created_at" db:"created_at"`
	Updated         int64     `json:"updated_at" db:"updated_at"`
}

// JobSummary is a client-facing job row with its quote count.
type JobSummary struct {
	Job
	QuoteCount int `json:"quote_count" db:"quote_count"`
}

type Quote struct {
	ID               string      `json:"id" db:"id"`
	JobID            string      `json:"job_id" db:"job_id"`
	ProfessionalID   string      `json:"professional_id" db:"professional_id"`
	ProfessionalName string      `json:"professional_name" db:"professional_name"`
	PriceCents       int64       `json:"price_cents" db:"price_cents"`
	Message          string      `json:"message" db:"message"`
	Timeline         string      `json:"timeline,omitempty" db:"timeline"`
	Status           QuoteStatus `json:"status" db:"status"`
	Created          int64       `json:"created_at" db:"created_at"`
	Updated          int64       `json:"updated_at" db:"updated_at"`
}

type Notification struct {
	ID      string           `json:"id" db:"id"`
	UserID  string           `json:"user_id" db:"user_id"`
	Type    NotificationType `json:"type" db:"type"`
	Title   string           `json:"title" db:"title"`
	Message string           `json:"message" db:"message"`
	JobID   *string          `json:"job_id,omitempty" db:"job_id"`
	QuoteID *string          `json:"quote_id,omitempty" db:"quote_id"`
	Read    bool             `json:"read" db:"is_read"`
	Created int64            `json:"created_at" db:"created_at"`
}

// CategorySchema is the intake form shape for one category, as JSON Schema.
type CategorySchema struct {
	Category    string `json:"category" db:"category"`
	Description string `json:"description" db:"description"`
	SchemaJSON  string `json:"schema_json" db:"schema_json"`
	Created     int64  `json:"created_at" db:"created_at"`
	Updated     int64  `json:"updated_at" db:"updated_at"`
}

// Contact is the private reachability data unlocked by an accepted quote.
type Contact struct {
	ProfileID string `json:"profile_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// StringSet is stored as a JSON array.
type StringSet []string

func (s StringSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringSet) Scan(src any) error {
	b, err := textBytes(src)
	if err != nil || len(b) == 0 {
		*s = nil
		return err
	}
	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("scan string set: %w", err)
	}
	*s = out
	return nil
}

// Details is the free-form, schema-validated intake map of a job.
type Details map[string]any

func (d Details) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(d))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *Details) Scan(src any) error {
	b, err := textBytes(src)
	if err != nil || len(b) == 0 {
		*d = nil
		return err
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("scan details: %w", err)
	}
	*d = out
	return nil
}

func textBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", src)
	}
}
