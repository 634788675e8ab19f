// Package database stores the single user account and its login sessions in
// SQLite.
//
// Passwords are kept as bcrypt hashes. Session tokens are 32 random bytes
// handed to the client in hex; only their SHA-256 hash is stored, so a
// leaked database file does not yield usable sessions. The database runs in
// WAL mode and creates its schema on open.
package database
