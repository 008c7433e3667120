package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThemeColors(t *testing.T) {
	require.NoError(t, SetCurrent(""))
	assert.Equal(t, 0x5865F2, Primary())
	assert.Equal(t, 0x57F287, Success())
	assert.Equal(t, 0xED4245, Error())
	assert.Equal(t, 0xFF0000, ModBan())
	assert.Equal(t, 0x7289DA, AboutEmpty())
}

func TestSetCurrentHalloweenInheritsSentimentRoles(t *testing.T) {
	require.NoError(t, SetCurrent("halloween"))
	t.Cleanup(func() { _ = SetCurrent("") })

	assert.Equal(t, 0xEB6123, Primary())
	assert.Equal(t, 0x57F287, Success())
	assert.Equal(t, 0xEB6123, About())
}

func TestRegisterRejectsDuplicatesAndUnknown(t *testing.T) {
	require.Error(t, Register(&Theme{Name: "halloween"}))
	require.Error(t, Register(&Theme{}))
	require.Error(t, Register(nil))
	require.Error(t, SetCurrent("missing"))
}

func TestCurrentReturnsCopy(t *testing.T) {
	require.NoError(t, SetCurrent(""))
	th := Current()
	th.Primary = 1
	assert.Equal(t, 0x5865F2, Primary())
}
