package validate

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username string `json:"username" binding:"required,alphanum_"`
	Password string `json:"password" binding:"required,pwdpolicy"`
	Title    string `json:"title" binding:"omitempty,notblank"`
}

func TestPassword(t *testing.T) {
	assert.NotEmpty(t, Password("short"))
	assert.NotEmpty(t, Password("12345678"))
	assert.NotEmpty(t, Password("has space 1"))
	assert.Empty(t, Password("correct-horse-9"))
}

func TestFields(t *testing.T) {
	Init()
	err := binding.Validator.ValidateStruct(signup{Username: "bad name!", Password: "12345678", Title: "   "})
	require.Error(t, err)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	fields := Fields(verrs)
	assert.Equal(t, alphaNumUnderText, fields["username"])
	assert.Equal(t, "password must not be entirely numeric", fields["password"])
	assert.Equal(t, notBlankText, fields["title"])

	err = binding.Validator.ValidateStruct(signup{})
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, requiredText, Fields(verrs)["username"])
}
