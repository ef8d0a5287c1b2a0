// Package types defines the Catalog and table interfaces, entity types,
// and standard errors for the courses service.
package types
