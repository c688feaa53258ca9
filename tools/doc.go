// Package tools defines the tool implementation interface and the read-only
// registry the tool loop dispatches model requests to.
package tools
