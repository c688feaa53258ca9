// Package llms defines the conversation data model shared by the tool loop and
// the provider adapters: messages, tagged content parts, tool specifications
// and the Model interface every provider implements.
//
// Provider specific clients live in the subpackages.
package llms
