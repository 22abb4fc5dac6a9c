package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTx struct {
	pgx.Tx
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *recordingTx) Commit(context.Context) error {
	t.committed = true
	return t.commitErr
}

func (t *recordingTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type stubBeginner struct {
	tx       *recordingTx
	beginErr error
}

func (b stubBeginner) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	return b.tx, nil
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	tx := &recordingTx{}
	ran := false

	err := WithTx(context.Background(), stubBeginner{tx: tx}, func(pgx.Tx) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.True(t, tx.committed)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	tx := &recordingTx{}
	boom := errors.New("boom")

	err := WithTx(context.Background(), stubBeginner{tx: tx}, func(pgx.Tx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestWithTxPropagatesBeginError(t *testing.T) {
	err := WithTx(context.Background(), stubBeginner{beginErr: errors.New("down")}, func(pgx.Tx) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.Error(t, err)
}

func TestWithTxReportsCommitError(t *testing.T) {
	tx := &recordingTx{commitErr: errors.New("serialization failure")}

	err := WithTx(context.Background(), stubBeginner{tx: tx}, func(pgx.Tx) error {
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit tx")
}
