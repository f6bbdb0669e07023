// Package postgres provides PostgreSQL-backed implementations of the
// clinicauth store interfaces, for deployments that keep token records in
// the primary relational database instead of Redis.
//
// [Open] connects through the pgx stdlib driver and [Manager.RunMigrations]
// applies the embedded goose migrations. The stores accept a [DBTX], so a
// caller can bind them to a *sql.DB or run them inside a transaction via
// [WithTx].
//
// # Behavior contract
//
//   - Revoke is conditional: revoking an already-revoked record reports
//     [clinicauth.ErrRecordRevoked], which the engine treats as a lost
//     rotation race.
//   - Consume deletes the reset record in the same statement that reads
//     it, so a reset token is honored at most once.
//   - Expiry is enforced by the engine's clock; rows are not filtered by
//     expiry here.
package postgres
