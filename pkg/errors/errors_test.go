package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    errors.ErrorCode
		message string
		wantStr string
	}{
		{
			name:    "tag_conflict",
			code:    errors.ErrTagConflict,
			message: "tag requested both positively and negatively",
			wantStr: "[TAG_CONFLICT] tag requested both positively and negatively",
		},
		{
			name:    "path_collision",
			code:    errors.ErrPathCollision,
			message: "two files for one path",
			wantStr: "[PATH_COLLISION] two files for one path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errors.New(tt.code, tt.message)
			assert.Equal(t, tt.wantStr, err.Error())
			assert.Equal(t, tt.code, errors.GetErrorCode(err))
		})
	}
}

func TestWrap(t *testing.T) {
	inner := stderrors.New("disk on fire")
	err := errors.Wrap(inner, errors.ErrFileWrite, "could not write target")

	assert.ErrorContains(t, err, "disk on fire")
	assert.ErrorIs(t, err, inner)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFileWrite))
	assert.False(t, errors.IsErrorCode(err, errors.ErrFileAccess))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, errors.ErrInternal, "ignored"))
	assert.Nil(t, errors.Wrapf(nil, errors.ErrInternal, "ignored %d", 1))
}

func TestIsMatchesOnCode(t *testing.T) {
	a := errors.Newf(errors.ErrHashMismatch, "hash of %s did not match", "a.txt")
	b := errors.New(errors.ErrHashMismatch, "different message")

	assert.ErrorIs(t, a, b)
}

func TestWithDetail(t *testing.T) {
	err := errors.New(errors.ErrTagUndeclared, "unknown tag").WithDetail("tag", "prod")
	assert.Equal(t, "prod", err.Details["tag"])
}

func TestGetErrorCodeFallback(t *testing.T) {
	assert.Equal(t, errors.ErrUnknown, errors.GetErrorCode(stderrors.New("plain")))
}
