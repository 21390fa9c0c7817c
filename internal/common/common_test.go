package common

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationRequest(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p := &PaginationRequest{}
		assert.Equal(t, 0, p.GetOffset())
		assert.Equal(t, DefaultPageSize, p.GetPageSize())
		assert.Equal(t, "DESC", p.GetSortDirection())
	})

	t.Run("offset from page", func(t *testing.T) {
		p := &PaginationRequest{Page: 3, PageSize: 20}
		assert.Equal(t, 40, p.GetOffset())
	})

	t.Run("page size capped", func(t *testing.T) {
		p := &PaginationRequest{PageSize: 10000}
		assert.Equal(t, MaxPageSize, p.GetPageSize())
	})

	t.Run("sort direction normalized", func(t *testing.T) {
		p := &PaginationRequest{SortDir: "ASC"}
		assert.Equal(t, "ASC", p.GetSortDirection())
	})
}

func TestNewPaginationResponse(t *testing.T) {
	resp := NewPaginationResponse(2, 10, 35)
	assert.Equal(t, 4, resp.TotalPages)
	assert.True(t, resp.HasNext)
	assert.True(t, resp.HasPrev)

	empty := NewPaginationResponse(1, 10, 0)
	assert.Equal(t, 1, empty.TotalPages)
	assert.False(t, empty.HasNext)
	assert.False(t, empty.HasPrev)
}

func TestResponseEnvelopes(t *testing.T) {
	ok := NewSuccessResponse(map[string]string{"id": "wf-1"})
	assert.True(t, ok.Success)
	assert.Nil(t, ok.Error)
	assert.NotZero(t, ok.Timestamp)

	fail := NewErrorResponse("not_found", "resource_not_found", "workflow not found", "")
	assert.False(t, fail.Success)
	assert.Equal(t, "not_found", fail.Error.Type)
	assert.Equal(t, "resource_not_found", fail.Error.Code)
}

func TestStringHelpers(t *testing.T) {
	assert.True(t, ContainsString([]string{"a", "b"}, "b"))
	assert.False(t, ContainsString(nil, "a"))

	assert.Equal(t, []string{"a", "b"}, UniqueStrings([]string{"a", "b", "a", "b"}))
	assert.Equal(t, "fallback", CoalesceString("", "", "fallback"))
	assert.Equal(t, "ab...", TruncateString("abcdefgh", 5))
	assert.Equal(t, "abc", TruncateString("abc", 5))
}

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	assert.True(t, IsValidUUID(id))
	assert.NotEqual(t, id, GenerateID())
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestIDFromContext(ctx))

	ctx = SetRequestIDInContext(ctx, "req-42")
	ctx = SetUserIDInContext(ctx, "user-7")
	assert.Equal(t, "req-42", GetRequestIDFromContext(ctx))
	assert.Equal(t, "user-7", GetUserIDFromContext(ctx))
}
