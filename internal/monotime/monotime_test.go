package monotime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNowIsMonotonic(t *testing.T) {
	a := Now()
	time.Sleep(2 * time.Millisecond)
	b := Now()
	assert.Greater(t, b, a)
	assert.GreaterOrEqual(t, Since(a), 2*time.Millisecond)
}
