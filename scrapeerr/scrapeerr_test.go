package scrapeerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"navigation", Navigation("https://example.com/", errors.New("timeout")), KindNavigation},
		{"not found", ElementNotFound("a.product-item"), KindElementNotFound},
		{"extraction", Extraction("img@src", nil), KindExtraction},
		{"table", TableParse("https://example.com/facts", errors.New("no table")), KindTableParse},
		{"wrapped", fmt.Errorf("failed to read news: %w", ElementNotFound("div.content_title")), KindElementNotFound},
		{"plain", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestSentinels(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("failed to visit: %w", Navigation("https://example.com/", cause))

	assert.ErrorIs(t, err, ErrNavigation)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrElementNotFound)
	assert.Contains(t, err.Error(), "NavigationError: https://example.com/: connection refused")
}
