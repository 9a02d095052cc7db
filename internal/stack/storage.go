package stack

import (
	"github.com/profilemcp/profile-stack/internal/template"
	"github.com/profilemcp/profile-stack/resources/dynamodb"
)

// ----------------------------------------------------------------------------
// Profile table
// ----------------------------------------------------------------------------

// storage declares the profile table: one string partition key, on-demand
// billing, destroyed with the stack.
func (s *declarer) storage() template.Handle {
	keys, attrs := dynamodb.PartitionKey("id", dynamodb.AttributeTypeString)
	return s.b.Add(ProfileTable, dynamodb.Table{
		KeySchema:            keys,
		AttributeDefinitions: attrs,
		BillingMode:          dynamodb.BillingModePayPerRequest,
	}, template.WithDeletionPolicy(template.DeletionPolicyDelete))
}
