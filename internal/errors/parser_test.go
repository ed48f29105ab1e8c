package errors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestParseDBErrorNil(t *testing.T) {
	assert.Nil(t, ParseDBError(nil))
}

func TestParseDBErrorPassesThroughAPIError(t *testing.T) {
	assert.Equal(t, ErrSiteNotFound, ParseDBError(ErrSiteNotFound))
}

func TestParseDBErrorRecordNotFound(t *testing.T) {
	assert.Equal(t, ErrResourceNotFound, ParseDBError(gorm.ErrRecordNotFound))
}

func TestParseDBErrorTransient(t *testing.T) {
	for _, err := range []error{
		errors.New("database is locked"),
		errors.New("Error 1205: Lock wait timeout exceeded"),
		errors.New("dial tcp 127.0.0.1:5432: connection refused"),
		context.DeadlineExceeded,
	} {
		apiErr := ParseDBError(err)
		require.NotNil(t, apiErr)
		assert.Equal(t, ErrDatabase.Code, apiErr.Code)
		assert.Contains(t, apiErr.Message, "temporarily unavailable")
	}
}

func TestParseDBErrorGeneric(t *testing.T) {
	apiErr := ParseDBError(errors.New("constraint violated"))
	require.NotNil(t, apiErr)
	assert.Equal(t, ErrDatabase.Code, apiErr.Code)
	assert.Equal(t, ErrDatabase.HTTPStatus, apiErr.HTTPStatus)
}
