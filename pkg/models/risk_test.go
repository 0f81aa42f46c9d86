package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskLevelOrdering(t *testing.T) {
	assert.True(t, RiskLow < RiskMedium)
	assert.True(t, RiskMedium < RiskHigh)
	assert.True(t, RiskHigh < RiskExtreme)
}

func TestRiskLevelString(t *testing.T) {
	assert.Equal(t, "low", RiskLow.String())
	assert.Equal(t, "medium", RiskMedium.String())
	assert.Equal(t, "high", RiskHigh.String())
	assert.Equal(t, "extreme", RiskExtreme.String())
	assert.Contains(t, RiskLevel(0).String(), "unknown")
}

func TestMaxRisk(t *testing.T) {
	assert.Equal(t, RiskHigh, MaxRisk(RiskLow, RiskHigh))
	assert.Equal(t, RiskHigh, MaxRisk(RiskHigh, RiskLow))
	assert.Equal(t, RiskMedium, MaxRisk(RiskMedium, RiskMedium))
}

func TestParseSafetyMode(t *testing.T) {
	mode, err := ParseSafetyMode("safe")
	require.NoError(t, err)
	assert.Equal(t, SafetyModeSafe, mode)

	mode, err = ParseSafetyMode("unsafe")
	require.NoError(t, err)
	assert.Equal(t, SafetyModeUnsafe, mode)

	_, err = ParseSafetyMode("reckless")
	assert.Error(t, err)
}

func TestParseClientType(t *testing.T) {
	for _, name := range []string{"database", "management_api", "sdk"} {
		client, err := ParseClientType(name)
		require.NoError(t, err)
		assert.Equal(t, ClientType(name), client)
	}

	_, err := ParseClientType("mainframe")
	assert.Error(t, err)
}

func TestClientTypesStableOrder(t *testing.T) {
	assert.Equal(t,
		[]ClientType{ClientDatabase, ClientManagementAPI, ClientSDK},
		ClientTypes())
}
