// Package accounts implements a REST backend for user account
// management: registration, login and logout over signed session
// tokens, password reset via emailed one-time tokens, profile
// self-service, and admin CRUD over user records stored in MongoDB.
package accounts
