package spdm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionInitDefaults(t *testing.T) {
	s := newTestSession(t)
	assert.NotEmpty(t, s.ID)
	assert.NotNil(t, s.Rand)
	assert.NotNil(t, s.Log)
	assert.Equal(t, []uint8{MessageVersion10, MessageVersion11}, s.Connection.Versions)
	assert.NotNil(t, s.MutB())
	assert.NotNil(t, s.MutC())
}

func TestSessionInitValidation(t *testing.T) {
	base := func() *Session {
		return &Session{
			Connection: ConnectionParameters{
				Algorithms: AlgorithmSelection{BaseHashAlgo: HashSHA256, ReqBaseAsymAlg: AsymECDSAP256},
			},
			Local: LocalParameters{SlotCount: 2},
		}
	}

	s := base()
	require.NoError(t, s.Init())

	s = base()
	s.Local.SlotCount = 0
	assert.Error(t, s.Init())

	s = base()
	s.Local.SlotCount = MaxSlotCount + 1
	assert.Error(t, s.Init())

	s = base()
	s.Local.ProvisionedSlot = 2
	assert.Error(t, s.Init())

	s = base()
	s.Local.OpaqueData = make([]byte, MaxOpaqueDataSize+1)
	assert.Error(t, s.Init())

	s = base()
	s.Connection.Algorithms.BaseHashAlgo = 0
	assert.Error(t, s.Init())

	s = base()
	s.Connection.Algorithms.ReqBaseAsymAlg = 0
	assert.Error(t, s.Init())
}

func TestResponseVersion(t *testing.T) {
	s := newTestSession(t)
	assert.Equal(t, MessageVersion11, s.responseVersion())

	s.Connection.Versions = []uint8{MessageVersion10}
	assert.Equal(t, MessageVersion10, s.responseVersion())

	s.Connection.Versions = []uint8{MessageVersion10, MessageVersion11}
	assert.Equal(t, MessageVersion11, s.responseVersion())
}

func TestCapabilitySupported(t *testing.T) {
	s := newTestSession(t)
	s.Local.Capabilities = CapChal | CapCert
	s.Connection.PeerCapabilities = CapChal

	assert.True(t, s.capabilitySupported(CapChal, 0))
	assert.True(t, s.capabilitySupported(CapChal|CapCert, 0))
	assert.True(t, s.capabilitySupported(0, CapChal))
	assert.True(t, s.capabilitySupported(0, 0))
	assert.False(t, s.capabilitySupported(CapMutAuth, 0))
	assert.False(t, s.capabilitySupported(0, CapCert))
}
