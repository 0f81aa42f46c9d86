package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-db/warden/pkg/errors"
	"github.com/warden-db/warden/pkg/models"
)

func TestSDKClassifierClassify(t *testing.T) {
	classifier := NewSDKClassifier()

	tests := []struct {
		method string
		want   models.RiskLevel
	}{
		{"list_users", models.RiskLow},
		{"get_user_by_id", models.RiskLow},
		{"create_user", models.RiskMedium},
		{"update_user_by_id", models.RiskMedium},
		{"invite_user_by_email", models.RiskMedium},
		{"generate_link", models.RiskMedium},
		{"delete_user", models.RiskHigh},
		{"delete_factor", models.RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got, err := classifier.Classify(tt.method)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSDKClassifierUnknownMethod(t *testing.T) {
	classifier := NewSDKClassifier()

	_, err := classifier.Classify("drop_all_users")
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnsupportedOperation, errors.GetCode(err))
}

func TestSDKClassifierMethodsSorted(t *testing.T) {
	methods := NewSDKClassifier().Methods()
	assert.Len(t, methods, 8)
	assert.True(t, sortedStrings(methods))
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}
