// Package dbcapabilities provides a shared registry describing the
// capabilities of databases supported by the engine. Consumers import this
// package to make decisions based on uniform metadata (transactions,
// introspection, cancellation, paradigms, default ports) without asking a
// live adapter.
//
// Minimal usage example:
//
//	import "github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
//
//	func transactional(db string) bool {
//	    id, ok := dbcapabilities.ParseID(db)
//	    if !ok {
//	        return false
//	    }
//	    return dbcapabilities.MustGet(id).SupportsTransactions
//	}
//
// The package exposes constants for IDs (e.g., dbcapabilities.PostgreSQL), a
// registry `All` for advanced consumers, and URL parsing for the supported
// connection string schemes.
package dbcapabilities
