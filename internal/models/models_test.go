package models_test

import (
	"testing"

	"taskman/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestValidStatus(t *testing.T) {
	assert.True(t, models.ValidStatus("pending"))
	assert.True(t, models.ValidStatus("in_progress"))
	assert.True(t, models.ValidStatus("completed"))

	assert.False(t, models.ValidStatus("in progress"))
	assert.False(t, models.ValidStatus("done"))
	assert.False(t, models.ValidStatus(""))
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, "in_progress", models.NormalizeStatus("in progress"))
	assert.Equal(t, "in_progress", models.NormalizeStatus(" In Progress "))
	assert.Equal(t, "completed", models.NormalizeStatus("COMPLETED"))
	assert.Equal(t, "pending", models.NormalizeStatus("pending"))
	assert.Equal(t, "done", models.NormalizeStatus("done"))
}
