// Package store defines the persistence interfaces for the application's
// entities along with shared database plumbing: the DBTX abstraction over
// connections and transactions, the RunInTransaction helper, and the common
// store error taxonomy.
package store
