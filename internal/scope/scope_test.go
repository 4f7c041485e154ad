package scope_test

import (
	"testing"

	"github.com/born-ml/spflow/internal/scope"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s, err := scope.New([]int{2, 0}, 5, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, s.Query())
	assert.Equal(t, []int{3, 5}, s.Evidence())
	assert.True(t, s.IsConditional())

	_, err = scope.New([]int{1, 1})
	assert.True(t, errors.Is(err, scope.ErrInvalidScope))

	_, err = scope.New([]int{1}, 1)
	assert.True(t, errors.Is(err, scope.ErrInvalidScope))

	_, err = scope.New([]int{-1})
	assert.True(t, errors.Is(err, scope.ErrInvalidScope))
}

func TestScope_Immutable(t *testing.T) {
	query := []int{0, 1}
	s := scope.MustNew(query)
	query[0] = 7
	assert.Equal(t, []int{0, 1}, s.Query())

	q := s.Query()
	q[1] = 9
	assert.Equal(t, []int{0, 1}, s.Query())

	r := s.Remove([]int{0})
	assert.Equal(t, []int{1}, r.Query())
	assert.Equal(t, []int{0, 1}, s.Query())
}

func TestScope_Equal(t *testing.T) {
	assert.True(t, scope.Of(0, 1).Equal(scope.Of(1, 0)))
	assert.False(t, scope.Of(0, 1).Equal(scope.Of(0)))
	assert.False(t, scope.Of(0).Equal(scope.MustNew([]int{0}, 1)))
	assert.Equal(t, scope.Of(0, 1).Key(), scope.Of(1, 0).Key())
}

func TestAllPairwiseDisjoint(t *testing.T) {
	assert.True(t, scope.AllPairwiseDisjoint([]scope.Scope{scope.Of(0), scope.Of(1, 2), scope.Of(3)}))
	assert.False(t, scope.AllPairwiseDisjoint([]scope.Scope{scope.Of(0, 1), scope.Of(1)}))
	assert.True(t, scope.AllPairwiseDisjoint(nil))
}

func TestAllEqual(t *testing.T) {
	assert.True(t, scope.AllEqual([]scope.Scope{scope.Of(0, 1), scope.Of(1, 0)}))
	assert.False(t, scope.AllEqual([]scope.Scope{scope.Of(0), scope.Of(1)}))
	assert.True(t, scope.AllEqual(nil))
}

func TestJoin(t *testing.T) {
	a := scope.MustNew([]int{0}, 1)
	b := scope.MustNew([]int{1}, 2)
	j := a.Join(b)
	assert.Equal(t, []int{0, 1}, j.Query())
	assert.Equal(t, []int{2}, j.Evidence())

	all := scope.JoinAll([]scope.Scope{scope.Of(2), scope.Of(0), scope.Of(2)})
	assert.Equal(t, []int{2, 0}, all.Query())
	assert.Equal(t, "Scope([2 0])", all.String())
}

func TestOverlaps(t *testing.T) {
	s := scope.Of(0, 3)
	assert.True(t, s.Overlaps([]int{3, 4}))
	assert.False(t, s.Overlaps([]int{1}))
	assert.True(t, s.Contains(0))
}
