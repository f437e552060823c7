// Package utils provides common utility functions for the table-sync application.
// It includes loose value conversion used when reading cells decoded from JSON,
// such as join keys and delete-protection checkboxes, and a context-aware Sleep.
package utils
