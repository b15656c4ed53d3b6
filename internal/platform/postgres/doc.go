// Package postgres provides PostgreSQL implementations of the store
// interfaces, along with mapping from driver errors to the store error
// taxonomy.
package postgres
