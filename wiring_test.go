package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstErrorString_Empty(t *testing.T) {
	assert.Equal(t, "", firstErrorString(nil))
	assert.Equal(t, "", firstErrorString([]error{}))
}

func TestFirstErrorString_ReturnsFirst(t *testing.T) {
	errs := []error{errors.New("boom"), errors.New("second")}
	assert.Equal(t, "boom", firstErrorString(errs))
}

func TestAuditDBPath_EndsInAuditDB(t *testing.T) {
	path := auditDBPath()
	assert.Contains(t, path, "audit.db")
}
