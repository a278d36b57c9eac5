package shared

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_MatchesByCode(t *testing.T) {
	err := ErrInvalidState.Withf("Job %s is already closed", "j-1")

	assert.Equal(t, "Job j-1 is already closed", err.Error())
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, fmt.Errorf("close job: %w", err), ErrInvalidState)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.False(t, errors.Is(err, errors.New("Job j-1 is already closed")))
}

func TestFilter_Offset(t *testing.T) {
	tests := []struct {
		filter Filter
		want   int
	}{
		{Filter{}, 0},
		{Filter{Page: 1, PageSize: 20}, 0},
		{Filter{Page: 3, PageSize: 20}, 40},
		{Filter{Page: -2, PageSize: 20}, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.filter.Offset(), "%+v", tt.filter)
	}
}

func TestBaseEntity(t *testing.T) {
	e := NewBaseEntity()
	assert.NotEqual(t, e.ID, NewBaseEntity().ID)
	assert.Equal(t, e.CreatedAt, e.UpdatedAt)

	time.Sleep(time.Millisecond)
	e.Touch()
	assert.True(t, e.UpdatedAt.After(e.CreatedAt))
}
