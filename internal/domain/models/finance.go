// internal/domain/models/finance.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	FinanceIncome  = "income"
	FinanceExpense = "expense"
)

// ValidFinanceType reports whether t is income or expense.
func ValidFinanceType(t string) bool {
	return t == FinanceIncome || t == FinanceExpense
}

// DutyFinancialSecretary gates finance writes for non-leaders.
const DutyFinancialSecretary = "FinancialSecretary"

// Finance is one income or expense line for a unit.
type Finance struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	UnitID      primitive.ObjectID  `bson:"unit_id" json:"unit_id"`
	Type        string              `bson:"type" json:"type"`
	Amount      float64             `bson:"amount" json:"amount"`
	CategoryID  *primitive.ObjectID `bson:"category_id,omitempty" json:"category_id,omitempty"`
	Source      string              `bson:"source,omitempty" json:"source,omitempty"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	Date        time.Time           `bson:"date" json:"date"`
	RecordedBy  primitive.ObjectID  `bson:"recorded_by" json:"recorded_by"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}

// FinanceCategory names are unique per (unit, type), compared lowercased.
type FinanceCategory struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	UnitID    primitive.ObjectID `bson:"unit_id" json:"unit_id"`
	Type      string             `bson:"type" json:"type"`
	Name      string             `bson:"name" json:"name"`
	NameLower string             `bson:"name_lower" json:"-"`
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Attendance is a headcount for one service in an attendance-taking unit.
type Attendance struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	UnitID      primitive.ObjectID `bson:"unit_id" json:"unit_id"`
	Date        time.Time          `bson:"date" json:"date"`
	ServiceType string             `bson:"service_type" json:"service_type"`
	MaleCount   int                `bson:"male_count" json:"male_count"`
	FemaleCount int                `bson:"female_count" json:"female_count"`
	Total       int                `bson:"total" json:"total"`
	SubmittedBy primitive.ObjectID `bson:"submitted_by" json:"submitted_by"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
