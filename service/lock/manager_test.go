package lock

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/jobgate/model/lock"
)

type declarer struct {
	accesses []lock.Access
	err      error
}

func (d *declarer) Accesses() ([]lock.Access, error) {
	return d.accesses, d.err
}

func TestManager_Declare(t *testing.T) {
	testCases := []struct {
		name      string
		unit      Declarer
		expect    string
		expectErr bool
	}{
		{name: "no database access", unit: &declarer{}, expect: "{}"},
		{name: "literal names", unit: &declarer{accesses: []lock.Access{lock.ReadOf("b"), lock.WriteOf("a"), lock.ReadOf("a")}}, expect: "{a:write,b:read}"},
		{name: "computed name", unit: &declarer{accesses: []lock.Access{lock.DynamicOf(lock.Write), lock.ReadOf("a")}}, expect: "{*:write,a:read}"},
		{name: "malformed", unit: &declarer{accesses: []lock.Access{lock.WriteOf("")}}, expectErr: true},
		{name: "compiler error", unit: &declarer{err: errors.New("syntax error")}, expectErr: true},
		{name: "nil unit", unit: nil, expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			set, err := New().Declare(tc.unit)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expect, set.String())
		})
	}
}

func TestManager_Acquire(t *testing.T) {
	read := lock.MustSet(lock.ReadOf("x"))
	write := lock.MustSet(lock.WriteOf("x"))
	other := lock.MustSet(lock.WriteOf("y"))
	global := lock.MustSet(lock.DynamicOf(lock.Write))

	t.Run("read sharing", func(t *testing.T) {
		m := New()
		assert.True(t, m.Acquire("job1", read))
		assert.True(t, m.Acquire("job2", read))
		assert.Len(t, m.Holders(lock.Named("x")), 2)
	})

	t.Run("write exclusion", func(t *testing.T) {
		m := New()
		assert.True(t, m.Acquire("job1", write))
		assert.False(t, m.Acquire("job2", read))
		assert.False(t, m.Acquire("job3", write))
		assert.True(t, m.Acquire("job4", other))
		assert.Equal(t, []string{"job2", "job3"}, m.Waiting())

		m.Release("job1")
		assert.True(t, m.Acquire("job2", read))
		assert.False(t, m.Acquire("job3", write))
		m.Release("job2")
		assert.True(t, m.Acquire("job3", write))
		assert.Empty(t, m.Waiting())
	})

	t.Run("global conflicts with everything", func(t *testing.T) {
		m := New()
		assert.True(t, m.Acquire("job1", global))
		assert.False(t, m.Acquire("job2", other))
		m.Release("job1")
		assert.True(t, m.Acquire("job2", other))
		assert.False(t, m.Acquire("job3", global))
		m.Release("job2")
		assert.True(t, m.Acquire("job3", global))
	})

	t.Run("fifo per resource", func(t *testing.T) {
		m := New()
		assert.True(t, m.Acquire("job1", read))
		assert.False(t, m.Acquire("job2", write))
		// compatible with the holder but must not overtake the parked writer
		assert.False(t, m.Acquire("job3", read))
		// disjoint resource is free to go
		assert.True(t, m.Acquire("job4", other))

		m.Release("job1")
		assert.False(t, m.Acquire("job3", read))
		assert.True(t, m.Acquire("job2", write))
		m.Release("job2")
		assert.True(t, m.Acquire("job3", read))
	})

	t.Run("parked global blocks later named", func(t *testing.T) {
		m := New()
		assert.True(t, m.Acquire("job1", read))
		assert.False(t, m.Acquire("job2", global))
		assert.False(t, m.Acquire("job3", other))
		assert.True(t, m.Cancel("job2"))
		assert.True(t, m.Acquire("job3", other))
		assert.False(t, m.Cancel("job2"))
	})

	t.Run("empty set is vacuous", func(t *testing.T) {
		m := New()
		assert.True(t, m.Acquire("job1", global))
		assert.True(t, m.Acquire("job2", lock.Set{}))
		_, held := m.Held("job2")
		assert.False(t, held)
	})
}

func TestManager_Release(t *testing.T) {
	m := New()
	set := lock.MustSet(lock.WriteOf("b"), lock.ReadOf("a"))
	require.True(t, m.Acquire("job1", set))
	assert.Equal(t, 2, m.Resources())

	released := m.Release("job1")
	assert.Equal(t, []lock.Resource{lock.Named("a"), lock.Named("b")}, released)
	assert.Equal(t, 0, m.Resources())
	assert.Nil(t, m.Holders(lock.Named("a")))

	assert.Panics(t, func() { m.Release("job1") })
	assert.Panics(t, func() { m.Release("job9") })
}

func TestManager_AcquireTwice(t *testing.T) {
	m := New()
	set := lock.MustSet(lock.WriteOf("a"))
	require.True(t, m.Acquire("job1", set))
	assert.Panics(t, func() { m.Acquire("job1", set) })
}
