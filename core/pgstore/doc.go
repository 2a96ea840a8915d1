// Package pgstore implements the target store on Postgres with pgx.
//
// The schema is owned by goose migrations embedded in the migrations
// package. Lookups select by platform with name_root = ANY($2), and batch
// writes go through pgx.Batch. UpdateBatch is transactional.
package pgstore
