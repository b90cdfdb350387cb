package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/videotube/internal/apperror"
)

type registerForm struct {
	Username string `form:"username" validate:"notblank,max=30"`
	Email    string `form:"email" validate:"notblank,email"`
	Password string `form:"password" validate:"notblank,min=8"`
}

type sortQuery struct {
	SortType string `json:"sortType" validate:"omitempty,oneof=asc desc"`
	Limit    int    `json:"limit" validate:"gte=1,lte=100"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(&registerForm{Username: "alice", Email: "alice@example.com", Password: "s3cretpass"})
	assert.NoError(t, err)
}

func TestStruct_CollectsEveryField(t *testing.T) {
	err := Struct(&registerForm{Username: "   ", Email: "not-an-email", Password: "short"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "username is required", appErr.Message)
	assert.Equal(t, "username", appErr.Field)
	assert.Equal(t, []string{
		"username is required",
		"email must be a valid email address",
		"password must be at least 8 characters",
	}, appErr.Details)
}

func TestStruct_ParamMessages(t *testing.T) {
	tests := []struct {
		name string
		in   sortQuery
		want string
	}{
		{"oneof", sortQuery{SortType: "sideways", Limit: 10}, "sortType must be one of: asc desc"},
		{"lte", sortQuery{Limit: 500}, "limit must be less than or equal to 100"},
		{"gte", sortQuery{Limit: 0}, "limit must be greater than or equal to 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(&tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestNotBlank_Pointer(t *testing.T) {
	type patch struct {
		Title *string `json:"title" validate:"omitempty,notblank"`
	}
	blank := "  "
	assert.Error(t, Struct(&patch{Title: &blank}))
	assert.NoError(t, Struct(&patch{}))
}
