package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackageLabel(t *testing.T) {
	p := Package{UC: 100, Amount: 100}
	require.Equal(t, "100 UC — $1", p.Label())

	p = Package{UC: 500, Amount: 400}
	require.Equal(t, "500 UC — $4", p.Label())

	// 非整数美元
	p = Package{UC: 60, Amount: 99}
	require.Equal(t, "60 UC — $0.99", p.Label())
}

func TestCallbackRoundTrip(t *testing.T) {
	for _, p := range Packages {
		uc, amount, err := ParseCallback(p.CallbackData())
		require.NoError(t, err)
		require.Equal(t, p.Option(), uc+" UC")
		require.Equal(t, p.Amount, amount)
	}
}

func TestParseCallback_Invalid(t *testing.T) {
	cases := []string{
		"",
		"opt_100",
		"opt_100_100_extra",
		"pay_100_100",
		"opt_abc_100",
		"opt_100_abc",
	}
	for _, data := range cases {
		_, _, err := ParseCallback(data)
		require.Error(t, err, "data=%q", data)
	}
}

func TestInvoicePayload(t *testing.T) {
	p := Package{UC: 100, Amount: 100}
	require.Equal(t, "pay_100_42", p.InvoicePayload(42))
}
