package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultMaxWorkersIsBoundedBetweenOneAndSix(t *testing.T) {
	n := defaultMaxWorkers()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, 6)
}
