package store

import (
	"errors"
	"fmt"
)

var (
	// ErrForeignEntityMissing / ErrForeignFieldMissing / ErrForeignFieldMismatch —
	// исходы проверки FK-триады при создании/правке поля. Хендлер мапит их в 400.
	ErrForeignEntityMissing = errors.New("referenced entity does not exist")
	ErrForeignFieldMissing  = errors.New("referenced field does not exist")
	ErrForeignFieldMismatch = errors.New("referenced field does not belong to the referenced entity")
)

// Error — обёртка ошибок слоя хранения: операция, таблица, причина.
type Error struct {
	Op    string
	Table string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s: table=%s: %v", e.Op, e.Table, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(op, table string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Table: table, Err: err}
}
