package splitter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/labflow/backend/internal/application/splitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCompensation_RunsNewestFirst(t *testing.T) {
	var order []string
	var c splitter.Compensation
	for _, target := range []string{"s1", "s2", "s3"} {
		c.Add("destroy input set", target, func(context.Context) error {
			order = append(order, target)
			return nil
		})
	}

	results := c.Run(context.Background(), zap.NewNop())

	assert.Equal(t, []string{"s3", "s2", "s1"}, order)
	require.Len(t, results, 3)
	assert.Equal(t, "s3", results[0].Target)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, "s1", c.Actions()[0].Target)
}

func TestCompensation_ContinuesAfterFailure(t *testing.T) {
	var ran []string
	var c splitter.Compensation
	c.Add("destroy input set", "s1", func(context.Context) error {
		ran = append(ran, "s1")
		return nil
	})
	c.Add("destroy input set", "s2", func(context.Context) error {
		ran = append(ran, "s2")
		return errors.New("gone away")
	})

	results := c.Run(context.Background(), zap.NewNop())

	assert.Equal(t, []string{"s2", "s1"}, ran)
	assert.False(t, results[0].Success)
	assert.Equal(t, "gone away", results[0].ErrorMessage)
	assert.True(t, results[1].Success)
}

func TestCompensation_Empty(t *testing.T) {
	var c splitter.Compensation
	assert.Empty(t, c.Run(context.Background(), zap.NewNop()))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "NotStarted", splitter.StateNotStarted.String())
	assert.Equal(t, "RolledBack", splitter.StateRolledBack.String())
	assert.True(t, splitter.StateSetsLocked.IsTerminal())
	assert.False(t, splitter.StateJobsCreated.IsTerminal())
}
