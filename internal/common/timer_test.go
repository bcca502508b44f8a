package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer(t *testing.T) {
	timer := NewNamedTimer("test_timer")
	time.Sleep(10 * time.Millisecond)

	duration := timer.Stop()
	assert.GreaterOrEqual(t, duration, 10*time.Millisecond)

	str := timer.String()
	assert.Contains(t, str, "test_timer")
	assert.Contains(t, str, "ms")
}

func TestStageTimes(t *testing.T) {
	st := NewStageTimes()
	errBoom := errors.New("boom")

	assert.NoError(t, st.Time("decode", func() error { return nil }))
	assert.ErrorIs(t, st.Time("infer", func() error {
		time.Sleep(2 * time.Millisecond)
		return errBoom
	}), errBoom)
	st.Record("decode", time.Millisecond)

	assert.Equal(t, []string{"decode", "infer"}, st.Names())
	assert.GreaterOrEqual(t, st.Get("infer"), 2*time.Millisecond)
	assert.GreaterOrEqual(t, st.Get("decode"), time.Millisecond)
	assert.Equal(t, st.Get("decode")+st.Get("infer"), st.Total())
	assert.Zero(t, st.Get("missing"))
}
