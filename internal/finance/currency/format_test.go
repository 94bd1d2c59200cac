package currency

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatIDR(t *testing.T) {
	require.Equal(t, "Rp 2.220.000", Format("IDR", 2220000))
	require.Equal(t, "Rp 0", Format("IDR", 0))
}

func TestFormatUSD(t *testing.T) {
	require.Equal(t, "$1,250.50", Format("USD", 1250.5))
}

func TestFormatFallback(t *testing.T) {
	require.Equal(t, "SGD 99.90", Format("SGD", 99.9))
}
