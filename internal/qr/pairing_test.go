package qr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePairing_UnsafePairs(t *testing.T) {
	t.Run("both paying", func(t *testing.T) {
		res := ValidatePairing(RolePay, RolePay)
		assert.False(t, res.Valid)
		assert.Equal(t, ErrorBothPaying, res.ErrorKind)
		assert.NotEmpty(t, res.Remediation)
	})

	t.Run("both receiving counts static and dynamic", func(t *testing.T) {
		for _, pair := range [][2]Role{
			{RoleReceiveStatic, RoleReceiveStatic},
			{RoleReceiveStatic, RoleReceiveDynamic},
			{RoleReceiveDynamic, RoleReceiveStatic},
			{RoleReceiveDynamic, RoleReceiveDynamic},
		} {
			res := ValidatePairing(pair[0], pair[1])
			assert.False(t, res.Valid)
			assert.Equal(t, ErrorBothReceiving, res.ErrorKind)
		}
	})
}

func TestValidatePairing_SafePairsOrderIndependent(t *testing.T) {
	pairs := [][2]Role{
		{RolePay, RoleReceiveStatic},
		{RoleReceiveStatic, RolePay},
		{RolePay, RoleReceiveDynamic},
		{RoleReceiveDynamic, RolePay},
	}

	for _, pair := range pairs {
		res := ValidatePairing(pair[0], pair[1])
		assert.True(t, res.Valid, "pair %v/%v", pair[0], pair[1])
		assert.Equal(t, ErrorNone, res.ErrorKind)
		assert.Empty(t, res.Remediation)
	}
}

func TestValidatePairing_PayerSidePairs(t *testing.T) {
	// PAY against a request or split code settles only with PAY as the payer.
	assert.True(t, ValidatePairing(RolePay, RoleRequest).Valid)
	assert.True(t, ValidatePairing(RolePay, RoleSplit).Valid)

	res := ValidatePairing(RoleRequest, RoleSplit)
	assert.False(t, res.Valid)
	assert.Equal(t, ErrorUnsupportedPair, res.ErrorKind)
}

func TestValidatePairing_Totality(t *testing.T) {
	roles := []Role{RolePay, RoleReceiveStatic, RoleReceiveDynamic, RoleRequest, RoleSplit, RoleRefund}

	for _, mine := range roles {
		for _, theirs := range roles {
			res := ValidatePairing(mine, theirs)
			if res.Valid {
				assert.Equal(t, ErrorNone, res.ErrorKind)
			} else {
				assert.NotEqual(t, ErrorNone, res.ErrorKind)
				assert.NotEmpty(t, res.Remediation)
			}
		}
	}
}

func TestValidatePairing_Deterministic(t *testing.T) {
	first := ValidatePairing(RolePay, RoleRefund)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ValidatePairing(RolePay, RoleRefund))
	}
}
