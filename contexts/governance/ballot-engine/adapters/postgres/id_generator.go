package postgresadapter

import (
	"context"

	"github.com/google/uuid"
)

// UUIDGenerator is the default runtime ID source.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
