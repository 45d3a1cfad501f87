package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPlatformCode(t *testing.T) {
	tests := []struct {
		code int
		want LocationErrorKind
	}{
		{CodePermissionDenied, LocationDenied},
		{CodePositionUnavailable, LocationUnavailable},
		{CodeTimeout, LocationTimeout},
		{99, LocationUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			err := ClassifyPlatformCode(tt.code)
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, tt.code, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestLocationError_DistinctMessages(t *testing.T) {
	seen := map[string]bool{}
	for _, kind := range []LocationErrorKind{LocationDenied, LocationUnavailable, LocationTimeout} {
		msg := NewLocationError(kind, 0).Message
		assert.False(t, seen[msg], "duplicate remediation for %s", kind)
		seen[msg] = true
	}
}

func TestLocationError_ErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("auto-detect: %w", NewLocationError(LocationDenied, CodePermissionDenied))

	var locErr *LocationError
	require.True(t, errors.As(wrapped, &locErr))
	assert.Equal(t, LocationDenied, locErr.Kind)
	assert.Contains(t, wrapped.Error(), "code 1")
}
