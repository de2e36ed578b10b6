package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dtroode/authsession/internal/model"
)

func TestNewKVStore(t *testing.T) {
	db := &Connection{}
	store := NewKVStore(db)

	assert.NotNil(t, store)
	assert.Equal(t, db, store.db)
}

func TestExpiresAt(t *testing.T) {
	assert.Nil(t, expiresAt(0))
	assert.Nil(t, expiresAt(-time.Second))

	got := expiresAt(time.Minute)
	if assert.NotNil(t, got) {
		assert.WithinDuration(t, time.Now().Add(time.Minute), *got, time.Second)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: model.ErrStorageTimeout},
		{name: "other", err: errors.New("connection refused"), want: model.ErrStorageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, model.ErrStorage)
		})
	}
}
