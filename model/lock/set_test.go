package lock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSet(t *testing.T) {
	testCases := []struct {
		name      string
		accesses  []Access
		expect    string
		expectErr bool
	}{
		{name: "empty", expect: "{}"},
		{name: "single read", accesses: []Access{ReadOf("a")}, expect: "{a:read}"},
		{name: "read write collapse", accesses: []Access{ReadOf("a"), WriteOf("a"), ReadOf("a")}, expect: "{a:write}"},
		{name: "ordering", accesses: []Access{WriteOf("c"), ReadOf("a"), ReadOf("b")}, expect: "{a:read,b:read,c:write}"},
		{name: "dynamic read is global write", accesses: []Access{DynamicOf(Read), ReadOf("a")}, expect: "{*:write,a:read}"},
		{name: "empty name", accesses: []Access{ReadOf("")}, expectErr: true},
		{name: "invalid mode", accesses: []Access{{Database: "a"}}, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			set, err := NewSet(tc.accesses...)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expect, set.String())
		})
	}
}

func TestSet_Conflicts(t *testing.T) {
	testCases := []struct {
		name   string
		a, b   Set
		expect bool
	}{
		{name: "empty never conflicts", a: Set{}, b: MustSet(DynamicOf(Write)), expect: false},
		{name: "read read", a: MustSet(ReadOf("x")), b: MustSet(ReadOf("x")), expect: false},
		{name: "read write", a: MustSet(ReadOf("x")), b: MustSet(WriteOf("x")), expect: true},
		{name: "write write", a: MustSet(WriteOf("x")), b: MustSet(WriteOf("x")), expect: true},
		{name: "disjoint writes", a: MustSet(WriteOf("x")), b: MustSet(WriteOf("y")), expect: false},
		{name: "global vs named", a: MustSet(DynamicOf(Write)), b: MustSet(ReadOf("y")), expect: true},
		{name: "global read vs named read", a: MustSet(DynamicOf(Read)), b: MustSet(ReadOf("y")), expect: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, tc.a.Conflicts(tc.b))
			assert.Equal(t, tc.expect, tc.b.Conflicts(tc.a))
		})
	}
}

func TestResource_Compare(t *testing.T) {
	assert.Equal(t, -1, Global.Compare(Named("a")))
	assert.Equal(t, 1, Named("a").Compare(Global))
	assert.Equal(t, 0, Global.Compare(Global))
	assert.Equal(t, -1, Named("a").Compare(Named("b")))
	assert.True(t, Named("a") == Named("a"))
	assert.False(t, Resource{}.IsValid())
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("WRITE")
	assert.NoError(t, err)
	assert.Equal(t, Write, mode)
	_, err = ParseMode("upgrade")
	assert.Error(t, err)
}
