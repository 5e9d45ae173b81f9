package model

import "time"

// User represents a patient, caregiver or doctor account
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Medicine represents a medicine a patient is taking, with its stock on hand
type Medicine struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Name              string    `json:"name"`
	Dosage            string    `json:"dosage"`
	Frequency         string    `json:"frequency"`
	Stock             int       `json:"stock"`
	LowStockThreshold *int      `json:"low_stock_threshold,omitempty"`
	Notes             *string   `json:"notes,omitempty"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IntakeStatus represents the state of a scheduled dose
type IntakeStatus string

const (
	IntakeStatusPending IntakeStatus = "pending"
	IntakeStatusTaken   IntakeStatus = "taken"
	IntakeStatusMissed  IntakeStatus = "missed"
)

// IntakeEvent is one scheduled dose of one medicine for one patient
type IntakeEvent struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	MedicineID  string       `json:"medicine_id"`
	ScheduledAt *time.Time   `json:"scheduled_at"`
	TakenAt     *time.Time   `json:"taken_at,omitempty"`
	Status      IntakeStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// DerivedStatus returns the status of the dose as of the given instant.
// A dose that was never logged becomes missed once its grace period has elapsed.
func (e IntakeEvent) DerivedStatus(asOf time.Time, grace time.Duration) IntakeStatus {
	if e.TakenAt != nil || e.Status == IntakeStatusTaken {
		return IntakeStatusTaken
	}
	if e.Status == IntakeStatusMissed {
		return IntakeStatusMissed
	}
	if e.ScheduledAt != nil && e.ScheduledAt.Add(grace).Before(asOf) {
		return IntakeStatusMissed
	}
	return IntakeStatusPending
}

// HealthReading is a time-stamped set of vital signs. Every vital is optional.
type HealthReading struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	MeasuredAt time.Time `json:"measured_at"`
	Systolic   *float64  `json:"systolic,omitempty"`
	Diastolic  *float64  `json:"diastolic,omitempty"`
	BloodSugar *float64  `json:"blood_sugar,omitempty"`
	HeartRate  *float64  `json:"heart_rate,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasVitals reports whether the reading carries at least one vital sign
func (r HealthReading) HasVitals() bool {
	return r.Systolic != nil || r.Diastolic != nil || r.BloodSugar != nil || r.HeartRate != nil
}

// Severity ranks alerts
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from low (1) to critical (4). Unknown severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AlertRule identifies the rule that produced an alert
type AlertRule string

const (
	AlertRuleAdherence AlertRule = "adherence"
	AlertRuleLowStock  AlertRule = "low-stock"
	AlertRuleVital     AlertRule = "vital"
)

// Alert is a severity-tagged notice for caregivers and doctors.
// At most one unresolved alert exists per (UserID, Rule, EntityKey).
type Alert struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Rule       AlertRule  `json:"rule"`
	EntityKey  string     `json:"entityKey,omitempty"`
	Severity   Severity   `json:"severity"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy *string    `json:"resolvedBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Report represents a generated PDF adherence report
type Report struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	DateRangeStart time.Time `json:"date_range_start"`
	DateRangeEnd   time.Time `json:"date_range_end"`
	FilePath       string    `json:"file_path"`
	GeneratedAt    time.Time `json:"generated_at"`
}
