package validation_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	domainerrors "github.com/driftbrowser/drift-core/internal/errors"
	"github.com/driftbrowser/drift-core/internal/validation"
)

type queueRequest struct {
	DeviceID string `json:"device_id" validate:"required"`
	URL      string `json:"url" validate:"required,url,max=2048"`
	Kind     string `json:"kind" validate:"required,oneof=close_tab"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	req := queueRequest{
		DeviceID: "device-abc123",
		URL:      "https://example.org/article",
		Kind:     "close_tab",
	}

	err := v.Validate(req)
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name       string
		req        queueRequest
		wantErrMsg string
	}{
		{
			name: "missing required field",
			req: queueRequest{
				DeviceID: "", // Missing
				URL:      "https://example.org/",
				Kind:     "close_tab",
			},
			wantErrMsg: "device_id",
		},
		{
			name: "invalid url",
			req: queueRequest{
				DeviceID: "device-abc123",
				URL:      "not a url",
				Kind:     "close_tab",
			},
			wantErrMsg: "url",
		},
		{
			name: "url too long",
			req: queueRequest{
				DeviceID: "device-abc123",
				URL:      "https://example.org/" + strings.Repeat("a", 2048),
				Kind:     "close_tab",
			},
			wantErrMsg: "url",
		},
		{
			name: "unknown command kind",
			req: queueRequest{
				DeviceID: "device-abc123",
				URL:      "https://example.org/",
				Kind:     "open_tab",
			},
			wantErrMsg: "kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			assert.Error(t, err)

			var domainErr *domainerrors.Error
			if assert.True(t, errors.As(err, &domainErr)) {
				assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)

				details, ok := domainErr.Details.(map[string]string)
				if assert.True(t, ok, "details should carry field errors") {
					assert.Contains(t, details, tt.wantErrMsg)
				}
			}
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	req := queueRequest{
		DeviceID: "",
		URL:      "https://example.org/",
		Kind:     "close_tab",
	}

	err := v.Validate(req)
	assert.Error(t, err)

	var domainErr *domainerrors.Error
	assert.True(t, errors.As(err, &domainErr))

	// Should use JSON tag name "device_id", not struct field name "DeviceID"
	details, ok := domainErr.Details.(map[string]string)
	assert.True(t, ok)
	assert.Contains(t, details, "device_id")
	assert.NotContains(t, details, "DeviceID")
}
