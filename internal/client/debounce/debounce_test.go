package debounce

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/storefront/internal/testutil"
	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	got []string
}

func (r *recorder) emit(v string) { r.got = append(r.got, v) }

func newDebouncer(t *testing.T) (*Debouncer[string], *testutil.FakeClock, *recorder) {
	t.Helper()
	c := testutil.NewFakeClock(epoch)
	r := &recorder{}
	return New(c, time.Second, r.emit), c, r
}

func TestDebouncer_EmitsLatestAfterQuietWindow(t *testing.T) {
	d, c, r := newDebouncer(t)

	d.Push("a")
	c.Advance(300 * time.Millisecond)
	d.Push("b")
	c.Advance(300 * time.Millisecond)
	d.Push("c")

	c.Advance(999 * time.Millisecond)
	assert.Empty(t, r.got, "window restarts on every push")

	c.Advance(time.Millisecond)
	assert.Equal(t, []string{"c"}, r.got)

	_, ok := d.Pending()
	assert.False(t, ok)
}

func TestDebouncer_SeparateBurstsEmitSeparately(t *testing.T) {
	d, c, r := newDebouncer(t)

	d.Push("a")
	c.Advance(2 * time.Second)
	d.Push("b")
	c.Advance(2 * time.Second)

	assert.Equal(t, []string{"a", "b"}, r.got)
}

func TestDebouncer_Flush(t *testing.T) {
	d, c, r := newDebouncer(t)

	assert.False(t, d.Flush())

	d.Push("x")
	assert.True(t, d.Flush())
	assert.Equal(t, []string{"x"}, r.got)

	c.Advance(5 * time.Second)
	assert.Equal(t, []string{"x"}, r.got, "flushed value must not be emitted twice")
	assert.Equal(t, 0, c.Pending())
}

func TestDebouncer_Cancel(t *testing.T) {
	d, c, r := newDebouncer(t)

	d.Push("x")
	v, ok := d.Pending()
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	assert.True(t, d.Cancel())
	assert.False(t, d.Cancel())

	c.Advance(5 * time.Second)
	assert.Empty(t, r.got)
}

func TestDebouncer_CloseIgnoresLaterPushes(t *testing.T) {
	d, c, r := newDebouncer(t)

	d.Push("x")
	d.Close()
	d.Push("y")
	c.Advance(5 * time.Second)

	assert.Empty(t, r.got)
	assert.False(t, d.Flush())
}

func TestNew_DefaultWindow(t *testing.T) {
	c := testutil.NewFakeClock(epoch)
	r := &recorder{}
	d := New(c, 0, r.emit)

	d.Push("x")
	c.Advance(DefaultWindow - time.Millisecond)
	assert.Empty(t, r.got)
	c.Advance(time.Millisecond)
	assert.Equal(t, []string{"x"}, r.got)
}

func TestDebouncer_FlushWaitsForRunningEmission(t *testing.T) {
	c := testutil.NewFakeClock(epoch)
	entered := make(chan struct{})
	release := make(chan struct{})
	var got []string
	d := New(c, time.Second, func(v string) {
		close(entered)
		<-release
		got = append(got, v)
	})

	d.Push("x")
	advanced := make(chan struct{})
	go func() {
		defer close(advanced)
		c.Advance(time.Second)
	}()
	<-entered

	flushed := make(chan bool)
	go func() { flushed <- d.Flush() }()

	select {
	case <-flushed:
		t.Fatal("Flush returned while the timer emission was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case ok := <-flushed:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Flush did not return after the emission finished")
	}
	<-advanced
	assert.Equal(t, []string{"x"}, got)
}
