package domain

import (
	"github.com/scrilab/artale-auth/internal/errors"
)

// License errors.
var (
	// ErrLicenseNotFound indicates no license exists for the identity digest.
	ErrLicenseNotFound = errors.Wrap(errors.ErrNotFound, "license not found")

	// ErrCorruptRecord indicates a stored license failed validation on read.
	ErrCorruptRecord = errors.New("corrupt license record")
)

func wrapCorrupt(err error) error {
	return errors.Wrap(ErrCorruptRecord, err.Error())
}
