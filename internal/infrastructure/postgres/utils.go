package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/zentral/internal/domain"
)

// SQLSTATE relevantes.
const (
	codeUniqueViolation       = "23505"
	codeInsufficientPrivilege = "42501" // incluye violaciones de políticas RLS
)

// classify traduce errores de Postgres a errores de dominio conservando el original.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %s: %w", domain.ErrDuplicate, pgErr.ConstraintName, err)
	case codeInsufficientPrivilege:
		return errors.Join(&domain.CrossTenantError{Op: "write", Table: pgErr.TableName}, err)
	}
	return err
}
