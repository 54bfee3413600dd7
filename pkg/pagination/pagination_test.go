package pagination

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/reviewregistry/pkg/errors"
)

func request(query string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/api/v1/businesses/1/reviews"+query, nil)
}

func TestFromRequest_Defaults(t *testing.T) {
	p, err := FromRequest(request(""))
	require.NoError(t, err)

	assert.Equal(t, Params{Page: 1, PerPage: DefaultPerPage}, p)
	assert.Zero(t, p.Offset())
}

func TestFromRequest_Explicit(t *testing.T) {
	p, err := FromRequest(request("?page=3&per_page=25"))
	require.NoError(t, err)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 25, p.PerPage)
	assert.Equal(t, 50, p.Offset())
}

func TestFromRequest_Rejects(t *testing.T) {
	tests := map[string]string{
		"zero page":         "?page=0",
		"negative page":     "?page=-2",
		"non numeric page":  "?page=two",
		"zero per_page":     "?per_page=0",
		"per_page over max": "?per_page=" + strconv.Itoa(MaxPerPage+1),
		"non numeric limit": "?per_page=lots",
	}
	for name, query := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromRequest(request(query))
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
		})
	}
}

func TestFromRequest_MaxPerPageAccepted(t *testing.T) {
	p, err := FromRequest(request("?per_page=" + strconv.Itoa(MaxPerPage)))
	require.NoError(t, err)
	assert.Equal(t, MaxPerPage, p.PerPage)
}

func TestNewResult_Counters(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		params  Params
		pages   int
		hasNext bool
		hasPrev bool
	}{
		{"empty", 0, Params{Page: 1, PerPage: 20}, 0, false, false},
		{"single page", 3, Params{Page: 1, PerPage: 10}, 1, false, false},
		{"middle page", 10, Params{Page: 2, PerPage: 2}, 5, true, true},
		{"partial last page", 11, Params{Page: 3, PerPage: 5}, 3, false, true},
		{"past the end", 4, Params{Page: 9, PerPage: 2}, 2, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResult([]int{1}, tt.total, tt.params)
			assert.Equal(t, tt.pages, r.TotalPages)
			assert.Equal(t, tt.hasNext, r.HasNext)
			assert.Equal(t, tt.hasPrev, r.HasPrev)
		})
	}
}

func TestNewResult_NilDataIsEmptyList(t *testing.T) {
	r := NewResult[string](nil, 0, Params{Page: 1, PerPage: 20})
	assert.NotNil(t, r.Data)
	assert.Empty(t, r.Data)
}

func TestMap(t *testing.T) {
	r := NewResult([]int{1, 2}, 5, Params{Page: 1, PerPage: 2})
	out := Map(r, func(v int) string { return strconv.Itoa(v * 10) })

	assert.Equal(t, []string{"10", "20"}, out.Data)
	assert.Equal(t, 5, out.TotalCount)
	assert.Equal(t, 3, out.TotalPages)
	assert.True(t, out.HasNext)
}
