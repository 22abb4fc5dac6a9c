package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinicflow/clinicflow/internal/app"
	_ "github.com/clinicflow/clinicflow/internal/testing/guard"
)

func TestMainExitsImmediatelyInTestMode(t *testing.T) {
	assert.True(t, app.InTestMode())

	// Must return without binding ports or dialing infrastructure.
	main()
}
