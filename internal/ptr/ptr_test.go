package ptr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeref(t *testing.T) {
	assert.Equal(t, 3, Deref(To(3), 7))
	assert.Equal(t, 7, Deref[int](nil, 7))
}

func TestClone(t *testing.T) {
	assert.Nil(t, Clone[time.Time](nil))

	orig := To(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c := Clone(orig)
	assert.Equal(t, *orig, *c)

	*c = c.Add(time.Hour)
	assert.NotEqual(t, *orig, *c, "clone must not alias the original")
}
