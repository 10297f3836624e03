package sessionid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeneratesValidIDs(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		require.NoError(t, Validate(id))
		assert.False(t, seen[id], "duplicate ID %s", id)
		seen[id] = true
	}
}

func TestIDsAreTimeOrdered(t *testing.T) {
	t.Parallel()

	first := New()
	time.Sleep(2 * time.Millisecond)
	second := New()
	assert.Less(t, first, second, "IDs generated later must sort later")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.Error(t, Validate("short"))
	assert.Error(t, Validate("zzzzzzzzzzzzzzzzzzzzzzzzzz"), "first char beyond timestamp range")
	assert.Error(t, Validate("0123456789ABCDEF0123456789"), "uppercase rejected")
	assert.NoError(t, Validate("01h455vb4pex5vsknk084sn02q"))
}
