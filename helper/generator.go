package helper

import (
	"crypto/rand"

	"github.com/oklog/ulid"
)

// NewRunID returns a sortable identifier for one outrotate run.
func NewRunID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
