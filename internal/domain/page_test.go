package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPage_Navigation(t *testing.T) {
	p := NewPage([]int{7}, 3, 3, 7)

	assert.Equal(t, 3, p.Pages())
	assert.True(t, p.HasPrev())
	assert.False(t, p.HasNext())
	assert.Equal(t, 2, p.PrevNum())
}

func TestPage_EmptyListing(t *testing.T) {
	p := NewPage[int](nil, 0, 3, 0)

	assert.Equal(t, 1, p.Number)
	assert.Equal(t, 1, p.Pages())
	assert.False(t, p.HasPrev())
	assert.False(t, p.HasNext())
	assert.Equal(t, []int{1}, p.IterPages())
}

func TestPage_IterPages(t *testing.T) {
	tests := []struct {
		name   string
		number int
		total  int
		want   []int
	}{
		{name: "few pages", number: 1, total: 7, want: []int{1, 2, 3}},
		{name: "first of many", number: 1, total: 30, want: []int{1, 2, 3, 0, 10}},
		{name: "middle", number: 5, total: 30, want: []int{1, 0, 4, 5, 6, 7, 0, 10}},
		{name: "last", number: 10, total: 30, want: []int{1, 0, 9, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage[int](nil, tt.number, 3, tt.total)
			assert.Equal(t, tt.want, p.IterPages())
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Offset(1, 3))
	assert.Equal(t, 6, Offset(3, 3))
	assert.Equal(t, 0, Offset(-2, 3))
}

func TestGrievance_IsAuthoredBy(t *testing.T) {
	g := &Grievance{AuthorID: 4}

	assert.True(t, g.IsAuthoredBy(&User{ID: 4}))
	assert.False(t, g.IsAuthoredBy(&User{ID: 5}))
	assert.False(t, g.IsAuthoredBy(nil))
}

func TestIsCategory(t *testing.T) {
	assert.True(t, IsCategory("Water Supply"))
	assert.False(t, IsCategory("water supply"))
	assert.False(t, IsCategory(""))
}

func TestDuplicateUserError_Is(t *testing.T) {
	var err error = &DuplicateUserError{Field: "email"}
	assert.ErrorIs(t, err, ErrDuplicateUser)
	assert.Equal(t, "email is already taken", err.Error())
}
