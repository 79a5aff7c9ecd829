package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reviewInput struct {
	BookID  string `json:"bookId" validate:"required,uuid"`
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Content string `json:"content" validate:"notblank,max=5000"`
}

type registerInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

type bookInput struct {
	ISBN  string `json:"isbn" validate:"omitempty,isbn"`
	Genre string `json:"genre" validate:"oneof=fiction non-fiction"`
	Pages int    `json:"pageCount" validate:"min=1"`
	Cover string `json:"-" validate:"omitempty,url"`
}

func TestValidate_Success(t *testing.T) {
	in := reviewInput{BookID: "550e8400-e29b-41d4-a716-446655440000", Rating: 4, Content: "Great pacing."}
	assert.NoError(t, Validate(in))
}

func TestValidate_FieldsUseJSONNames(t *testing.T) {
	err := Validate(reviewInput{Rating: 3, Content: "ok"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Equal(t, "is required", fields["bookId"])
	assert.NotContains(t, fields, "BookID")
}

func TestValidate_RatingOutOfRange(t *testing.T) {
	for _, rating := range []int{0, 6, -1} {
		err := Validate(reviewInput{BookID: "550e8400-e29b-41d4-a716-446655440000", Rating: rating, Content: "x"})

		var valErr *ValidationError
		require.ErrorAs(t, err, &valErr, "rating %d", rating)
		assert.Contains(t, valErr.Fields(), "rating")
	}
}

func TestValidate_NotBlank_RejectsWhitespace(t *testing.T) {
	err := Validate(reviewInput{BookID: "550e8400-e29b-41d4-a716-446655440000", Rating: 3, Content: "   \n\t"})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["content"])
}

func TestValidate_EmailAndPasswordLength(t *testing.T) {
	err := Validate(registerInput{Name: "Ada", Email: "not-an-email", Password: "12345"})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be at least 6 characters", fields["password"])
}

func TestValidate_NumericMinMessage(t *testing.T) {
	err := Validate(bookInput{Genre: "fiction", Pages: 0})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be at least 1", valErr.Fields()["pageCount"])
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(bookInput{Genre: "poetry", Pages: 10})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["genre"], "one of")
}

func TestValidate_DashedTagFallsBackToFieldName(t *testing.T) {
	err := Validate(bookInput{Genre: "fiction", Pages: 10, Cover: "not a url"})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be a valid URL", valErr.Fields()["Cover"])
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(registerInput{Email: "a@b.co", Password: "secret1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestIsISBN(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"978-0-13-468599-1", true},
		{"9780134685991", true},
		{"0-306-40615-2", true},
		{"080442957X", true},
		{"08044X9570", false},
		{"12345", false},
		{"978-0-13-46859A-1", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsISBN(tt.in))
		})
	}
}

func TestValidate_ISBNTag(t *testing.T) {
	assert.NoError(t, Validate(bookInput{ISBN: "978-0-13-468599-1", Genre: "fiction", Pages: 1}))

	err := Validate(bookInput{ISBN: "abc", Genre: "fiction", Pages: 1})
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["isbn"], "ISBN")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"name":"Ada","email":"ada@example.com","password":"secret1"}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var in registerInput
	require.NoError(t, DecodeAndValidate(req, &in))
	assert.Equal(t, "Ada", in.Name)
	assert.Equal(t, "ada@example.com", in.Email)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var in registerInput
	err := DecodeAndValidate(req, &in)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	body := `{"name":"","email":"bad","password":"secret1"}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var in registerInput
	err := DecodeAndValidate(req, &in)

	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
