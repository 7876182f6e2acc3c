// Package services defines the shared error taxonomy and context annotation
// helpers used by every pipeline component.
package services
