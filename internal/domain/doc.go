// Package domain contains the core entities of the task management system:
// tasks, recurrence patterns and users. Entities validate themselves and
// carry no persistence or transport concerns.
package domain
