// Package dynamodb provides CloudFormation resource types for Amazon DynamoDB.
package dynamodb

// Key types for Table_KeySchema.
const (
	KeyTypeHash  = "HASH"
	KeyTypeRange = "RANGE"
)

// Attribute types for Table_AttributeDefinition.
const (
	AttributeTypeString = "S"
	AttributeTypeNumber = "N"
	AttributeTypeBinary = "B"
)

// Billing modes for Table.BillingMode.
const (
	BillingModePayPerRequest = "PAY_PER_REQUEST"
	BillingModeProvisioned   = "PROVISIONED"
)

// Table represents an AWS::DynamoDB::Table.
//
// Attributes available through GetAtt: Arn, StreamArn.
// Ref returns the table name.
type Table struct {
	// TableName is the physical name. Leave empty to let CloudFormation
	// generate one.
	TableName any `json:"TableName,omitempty"`

	// KeySchema lists the primary key attributes.
	KeySchema []Table_KeySchema `json:"KeySchema,omitempty"`

	// AttributeDefinitions types every attribute named in a key schema.
	AttributeDefinitions []Table_AttributeDefinition `json:"AttributeDefinitions,omitempty"`

	// BillingMode is PAY_PER_REQUEST or PROVISIONED.
	BillingMode string `json:"BillingMode,omitempty"`

	// ProvisionedThroughput is required when BillingMode is PROVISIONED.
	ProvisionedThroughput *Table_ProvisionedThroughput `json:"ProvisionedThroughput,omitempty"`

	// GlobalSecondaryIndexes declares GSIs.
	GlobalSecondaryIndexes []any `json:"GlobalSecondaryIndexes,omitempty"`

	// LocalSecondaryIndexes declares LSIs.
	LocalSecondaryIndexes []any `json:"LocalSecondaryIndexes,omitempty"`

	// TimeToLiveSpecification enables item expiry on one attribute.
	TimeToLiveSpecification *Table_TimeToLiveSpecification `json:"TimeToLiveSpecification,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Table) ResourceType() string {
	return "AWS::DynamoDB::Table"
}

// Table_KeySchema is one element of a table key schema.
type Table_KeySchema struct {
	AttributeName string `json:"AttributeName"`
	KeyType       string `json:"KeyType"`
}

// Table_AttributeDefinition types a key attribute.
type Table_AttributeDefinition struct {
	AttributeName string `json:"AttributeName"`
	AttributeType string `json:"AttributeType"`
}

// Table_ProvisionedThroughput sets read and write capacity units.
type Table_ProvisionedThroughput struct {
	ReadCapacityUnits  int `json:"ReadCapacityUnits"`
	WriteCapacityUnits int `json:"WriteCapacityUnits"`
}

// Table_TimeToLiveSpecification configures TTL.
type Table_TimeToLiveSpecification struct {
	AttributeName string `json:"AttributeName,omitempty"`
	Enabled       bool   `json:"Enabled"`
}

// PartitionKey returns the key schema and attribute definition for a single
// hash key.
func PartitionKey(name, attributeType string) ([]Table_KeySchema, []Table_AttributeDefinition) {
	return []Table_KeySchema{{AttributeName: name, KeyType: KeyTypeHash}},
		[]Table_AttributeDefinition{{AttributeName: name, AttributeType: attributeType}}
}
