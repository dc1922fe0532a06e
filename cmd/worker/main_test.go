package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skillforge/user-service/internal/app"
	_ "github.com/skillforge/user-service/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	assert.True(t, app.InTestMode())
	assert.NotPanics(t, main)
}
