package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CollectionName is the MongoDB collection holding procurement contracts
const CollectionName = "contracts"

// Contract is the read-only projection of a procurement contract used for
// access decisions. The full contract document is owned by the contracts
// application and carries many more fields.
type Contract struct {
	ID                   primitive.ObjectID `json:"id" bson:"_id"`
	ProcessCode          string             `json:"processCode,omitempty" bson:"processCode,omitempty"`
	Title                string             `json:"title,omitempty" bson:"title,omitempty"`
	ContractType         string             `json:"contractType,omitempty" bson:"contractType,omitempty"`
	CurrentPhase         string             `json:"currentPhase,omitempty" bson:"currentPhase,omitempty"`
	RequestingDepartment primitive.ObjectID `json:"requestingDepartment" bson:"requestingDepartment"`
	BudgetAmount         *float64           `json:"budgetAmount,omitempty" bson:"budgetAmount,omitempty"`
	CreatedBy            primitive.ObjectID `json:"createdBy" bson:"createdBy"`
	CreatedAt            time.Time          `json:"createdAt" bson:"createdAt"`
}
