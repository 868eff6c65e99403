package repositories

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ErrDuplicate is returned when a unique index rejects a write.
var ErrDuplicate = errors.New("duplicate record")

// ErrStale is returned when a conditional update matched no row because
// the record left the expected state.
var ErrStale = errors.New("record changed concurrently")

func translate(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Wrap(ErrDuplicate, msg)
	}
	return errors.Wrap(err, msg)
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
