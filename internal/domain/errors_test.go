package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	assert.Equal(t, "[NOT_FOUND] document not indexed", ErrDocumentNotIndexed.Error())

	wrapped := ErrEmbeddingFailed.WithCause(errors.New("rate limited"))
	assert.Equal(t, "[UPSTREAM_ERROR] embedding request failed: rate limited", wrapped.Error())
}

func TestDomainError_IsMatchesSentinelWithCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("retrieve: %w", ErrEmbeddingFailed.WithCause(cause))

	assert.True(t, errors.Is(err, ErrEmbeddingFailed))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrCompletionFailed))
}

func TestDomainError_WithCauseDoesNotMutateSentinel(t *testing.T) {
	_ = ErrCompletionFailed.WithCause(errors.New("boom"))
	assert.Nil(t, ErrCompletionFailed.Err)
}

func TestParseUserType(t *testing.T) {
	tests := []struct {
		in   string
		want UserType
	}{
		{"student", UserTypeStudent},
		{"Teacher", UserTypeTeacher},
		{"  researcher ", UserTypeResearcher},
		{"general", UserTypeGeneral},
		{"", UserTypeGeneral},
		{"wizard", UserTypeGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseUserType(tt.in))
		})
	}
}

func TestValidateDocumentInput(t *testing.T) {
	assert.NoError(t, ValidateDocumentInput("doc-1", "hello"))
	assert.Equal(t, ErrInvalidDocument, ValidateDocumentInput("", "hello"))
	assert.Equal(t, ErrInvalidDocument, ValidateDocumentInput("doc-1", "   "))
}
