package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUniqueViolationCode = "23505"

// IsUniqueViolation reports whether the provided error is a unique constraint
// violation. When constraintName is given, the violation must reference that
// constraint. Driver errors (pgx, pq) are inspected first; the message text is
// a fallback for drivers that do not expose structured codes (sqlite in tests).
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		if pgxErr.Code != pgUniqueViolationCode {
			return false
		}
		return constraintName == "" || pgxErr.ConstraintName == constraintName
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code) != pgUniqueViolationCode {
			return false
		}
		return constraintName == "" || pqErr.Constraint == constraintName
	}

	msg := err.Error()
	if strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed") {
		return constraintName == "" || strings.Contains(msg, constraintColumnHint(constraintName))
	}
	return false
}

// constraintColumnHint maps a Postgres constraint name to the column fragment
// sqlite reports, e.g. orders_transaction_id_key -> transaction_id.
func constraintColumnHint(constraintName string) string {
	hint := strings.TrimSuffix(constraintName, "_key")
	for _, table := range []string{"orders_", "order_items_", "sales_", "products_", "users_"} {
		if strings.HasPrefix(hint, table) {
			return strings.TrimPrefix(hint, table)
		}
	}
	return hint
}
