package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/common"
)

type address struct {
	City string `json:"city" validate:"required"`
}

type signup struct {
	Email   string  `json:"email" validate:"required,email"`
	Age     int     `json:"age" validate:"min=18"`
	Address address `json:"address"`
}

func TestFieldErrorsUsesJSONNames(t *testing.T) {
	v := common.NewValidator()
	err := v.Struct(signup{Email: "nope", Age: 3})
	require.Error(t, err)

	fields := common.FieldErrors(err, map[string]string{"address.city": "City is required"})
	require.Equal(t, map[string]string{
		"email":        "email must be a valid email",
		"age":          "age must be at least 18",
		"address.city": "City is required",
	}, fields)
}

func TestFieldErrorsIgnoresOtherErrors(t *testing.T) {
	require.Nil(t, common.FieldErrors(http.ErrBodyNotAllowed, nil))
}

func TestValidationFailedRenders422(t *testing.T) {
	rr := httptest.NewRecorder()
	common.WriteError(rr, common.ValidationFailed(map[string]string{"email": "Email is required"}, nil))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), `"email":"Email is required"`)
}

func TestParsePageCaps(t *testing.T) {
	page := common.ParsePage(httptest.NewRequest(http.MethodGet, "/?page=3&limit=500", nil), 20)
	require.Equal(t, 3, page.Number)
	require.Equal(t, common.MaxPerPage, page.PerPage)
	require.Equal(t, 200, page.Offset())

	page = common.ParsePage(httptest.NewRequest(http.MethodGet, "/?page=-1&limit=x", nil), 20)
	require.Equal(t, common.Page{Number: 1, PerPage: 20}, page)
	require.Zero(t, page.Offset())
}
