// Package catalog implements the library catalog: authors, genres, languages,
// books and their loanable copies (book instances).
//
// It owns the availability state machine of a copy (maintenance, available,
// reserved, on loan) and the borrow/return/renew service that drives it.
// Persistence is behind Store; PostgresStore and MemoryStore implement it with
// the same compare-and-set semantics for loan transitions.
package catalog
