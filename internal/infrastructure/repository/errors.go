package repository

import (
	"errors"
	"fmt"

	domain "kardex-ingest/internal/domain/kardex"

	"gorm.io/gorm"
)

// translateError maps storage-level uniqueness violations onto the domain
// sentinel so resolvers can recover from natural-key races without knowing
// the database driver. Requires TranslateError on the gorm connection.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", domain.ErrDuplicateKey, err)
	}
	return err
}

// errDuplicate reports a row lost to a concurrent writer. The inserts use
// ON CONFLICT DO NOTHING, so no statement ever fails on a unique violation
// and the surrounding transaction stays usable for the retry lookup; a
// raised 23505 would abort the whole Postgres transaction and make the
// retry impossible.
func errDuplicate(kind, key string) error {
	return fmt.Errorf("%w: %s %q already exists", domain.ErrDuplicateKey, kind, key)
}
