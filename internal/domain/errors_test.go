package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetworkErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NetworkError(cause)

	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, NetworkError(context.DeadlineExceeded), context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "connection refused")
}
