// Package database manages the media manager's metadata store: the folder
// hierarchy with its materialized paths, and the file registry that binds
// uploaded files to folders.
//
// The store is a single SQLite database in WAL mode. Folder mutations that
// touch multiple rows (moves, renames, cascading deletes) run inside one
// transaction so readers never observe a partially updated path tree.
package database
