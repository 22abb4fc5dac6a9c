package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsMalformedDSN(t *testing.T) {
	_, err := New(context.Background(), Config{DSN: "://not-a-dsn"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
}
