package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func getByIDForUpdateTx(ctx context.Context, tx pgx.Tx, table, id string) (Record, error) {
	var rec Record

	err := tx.QueryRow(ctx, `
		SELECT id, user_id, token_hash,
		       issued_at, expires_at, revoked_at, replaced_by_id,
		       user_agent, ip
		FROM `+table+`
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.TokenHash,
		&rec.IssuedAt,
		&rec.ExpiresAt,
		&rec.RevokedAt,
		&rec.ReplacedByID,
		&rec.UserAgent,
		&rec.IP,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrTokenNotFound
	}
	if err != nil {
		return Record{}, err
	}

	return rec, nil
}

// deleteByIDTx removes a stale record with the given jti, guarding against a
// collision when a retried client request re-presents an already-seen new
// token. This is the only path that physically deletes a record.
func deleteByIDTx(ctx context.Context, tx pgx.Tx, table, id string) error {
	_, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	return err
}

func insertTx(ctx context.Context, tx pgx.Tx, table string, rec Record) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO `+table+` (
			id, user_id, token_hash,
			issued_at, expires_at, revoked_at, replaced_by_id,
			user_agent, ip
		) VALUES ($1, $2, $3, $4, $5, NULL, NULL, $6, $7)
	`, rec.ID, rec.UserID, rec.TokenHash, rec.IssuedAt, rec.ExpiresAt, rec.UserAgent, rec.IP)
	return err
}

// markRotatedTx revokes the old record and links it to its successor.
func markRotatedTx(ctx context.Context, tx pgx.Tx, table string, now time.Time, oldID, newID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE `+table+`
		SET revoked_at = $2,
		    replaced_by_id = $3
		WHERE id = $1
	`, oldID, now, newID)
	return err
}

// lineageSQL walks the replaced_by_id chain downstream from one record and
// revokes every reachable record that is still active. The recursive CTE is
// bounded by the chain length (one hop per rotation).
func lineageSQL(table string) string {
	return fmt.Sprintf(`
		WITH RECURSIVE lineage AS (
			SELECT id, replaced_by_id
			FROM %[1]s
			WHERE id = $1
			UNION ALL
			SELECT t.id, t.replaced_by_id
			FROM %[1]s t
			JOIN lineage l ON t.id = l.replaced_by_id
		)
		UPDATE %[1]s
		SET revoked_at = COALESCE(revoked_at, $2)
		WHERE id IN (SELECT id FROM lineage)
	`, table)
}

func revokeLineageTx(ctx context.Context, tx pgx.Tx, table string, now time.Time, fromID string) error {
	_, err := tx.Exec(ctx, lineageSQL(table), fromID, now)
	return err
}

func revokeLineage(ctx context.Context, pool *pgxpool.Pool, table string, now time.Time, fromID string) error {
	_, err := pool.Exec(ctx, lineageSQL(table), fromID, now)
	return err
}
