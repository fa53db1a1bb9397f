package chain

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ellemouton/sendpay/money"
	"github.com/stretchr/testify/require"
)

const (
	mainnetP2PKH  = "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2"
	mainnetP2SH   = "3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy"
	mainnetP2WPKH = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"
	testnetP2PKH  = "mgzdqkEjYEjR5QNdJxYFnCKZHuNYa5bUZ2"
	testnetP2WPKH = "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"
)

func TestParseNetwork(t *testing.T) {
	n, err := ParseNetwork("Testnet3")
	require.NoError(t, err)
	require.Equal(t, Testnet, n)

	_, err = ParseNetwork("litecoin")
	require.Error(t, err)

	require.Equal(t, &chaincfg.RegressionNetParams, Regtest.Params())
	require.Equal(t, &chaincfg.MainNetParams, Mainnet.Params())
}

func TestParsePayment(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		net     Network
		want    *Payment
		wantErr error
	}{
		{
			name: "mainnet p2pkh",
			raw:  mainnetP2PKH,
			net:  Mainnet,
			want: &Payment{Address: mainnetP2PKH},
		},
		{
			name: "mainnet p2sh",
			raw:  mainnetP2SH,
			net:  Mainnet,
			want: &Payment{Address: mainnetP2SH},
		},
		{
			name: "mainnet segwit",
			raw:  mainnetP2WPKH,
			net:  Mainnet,
			want: &Payment{Address: mainnetP2WPKH},
		},
		{
			name: "upper case segwit keeps its casing",
			raw:  "BC1QW508D6QEJXTDG4Y5R3ZARVARY0C5XW7KV8F3T4",
			net:  Mainnet,
			want: &Payment{
				Address: "BC1QW508D6QEJXTDG4Y5R3ZARVARY0C5XW7KV8F3T4",
			},
		},
		{
			name: "testnet p2pkh",
			raw:  testnetP2PKH,
			net:  Testnet,
			want: &Payment{Address: testnetP2PKH},
		},
		{
			name:    "testnet address on mainnet",
			raw:     testnetP2PKH,
			net:     Mainnet,
			wantErr: ErrWrongNetwork,
		},
		{
			name:    "testnet segwit on mainnet",
			raw:     testnetP2WPKH,
			net:     Mainnet,
			wantErr: ErrWrongNetwork,
		},
		{
			name:    "mainnet address on testnet",
			raw:     mainnetP2PKH,
			net:     Testnet,
			wantErr: ErrWrongNetwork,
		},
		{
			name:    "bad checksum",
			raw:     "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN3",
			net:     Mainnet,
			wantErr: ErrNotAddress,
		},
		{
			name:    "not an address",
			raw:     "alice",
			net:     Mainnet,
			wantErr: ErrNotAddress,
		},
		{
			name: "bip21 with amount and label",
			raw: "bitcoin:" + mainnetP2PKH +
				"?amount=0.0005&label=Luke",
			net: Mainnet,
			want: &Payment{
				Address: mainnetP2PKH,
				Amount:  amountPtr(money.Sats(50_000)),
				Label:   "Luke",
			},
		},
		{
			name: "bip21 scheme is case insensitive",
			raw:  "BITCOIN:" + mainnetP2PKH,
			net:  Mainnet,
			want: &Payment{Address: mainnetP2PKH},
		},
		{
			name: "unified bip21",
			raw: "bitcoin:" + mainnetP2PKH +
				"?lightning=lnbc1invoice&message=coffee",
			net: Mainnet,
			want: &Payment{
				Address:   mainnetP2PKH,
				Message:   "coffee",
				Lightning: "lnbc1invoice",
			},
		},
		{
			name:    "bip21 amount below a satoshi",
			raw:     "bitcoin:" + mainnetP2PKH + "?amount=0.000000001",
			net:     Mainnet,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "bip21 garbage amount",
			raw:     "bitcoin:" + mainnetP2PKH + "?amount=lots",
			net:     Mainnet,
			wantErr: ErrInvalidAmount,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			got, err := ParsePayment(test.raw, test.net)
			if test.wantErr != nil {
				require.ErrorIs(t, err, test.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, test.want, got)
		})
	}
}

func TestPaymentMemo(t *testing.T) {
	require.Equal(t, "msg", (&Payment{Label: "l", Message: "msg"}).Memo())
	require.Equal(t, "l", (&Payment{Label: "l"}).Memo())
}

func amountPtr(a money.Amount) *money.Amount {
	return &a
}
