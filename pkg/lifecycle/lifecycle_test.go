package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	sm := NewStateMachine()

	assert.True(t, sm.CanTransition(StatusCreated, StatusProcessed))
	assert.True(t, sm.CanTransition(StatusProcessed, StatusCertified))

	// No skipping, repeating, or moving backwards.
	assert.False(t, sm.CanTransition(StatusCreated, StatusCertified))
	assert.False(t, sm.CanTransition(StatusCreated, StatusCreated))
	assert.False(t, sm.CanTransition(StatusProcessed, StatusProcessed))
	assert.False(t, sm.CanTransition(StatusProcessed, StatusCreated))
	assert.False(t, sm.CanTransition(StatusCertified, StatusProcessed))
	assert.False(t, sm.CanTransition(StatusCertified, StatusCreated))
	assert.False(t, sm.CanTransition(StatusCertified, StatusCertified))

	assert.False(t, sm.CanTransition("UNKNOWN", StatusProcessed))
}

func TestGetAllowedTransitions(t *testing.T) {
	sm := NewStateMachine()

	assert.Equal(t, []string{StatusProcessed}, sm.GetAllowedTransitions(StatusCreated))
	assert.Equal(t, []string{StatusCertified}, sm.GetAllowedTransitions(StatusProcessed))
	assert.Empty(t, sm.GetAllowedTransitions(StatusCertified))
	assert.Empty(t, sm.GetAllowedTransitions("UNKNOWN"))
}
