package main

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerID(t *testing.T) {
	assert.Equal(t, "worker-a", workerID("worker-a"))

	generated := workerID("")
	assert.Contains(t, generated, fmt.Sprintf("-%d-", os.Getpid()))
	assert.NotEqual(t, generated, workerID(""))
	assert.Len(t, generated[strings.LastIndex(generated, "-")+1:], 8)
}
