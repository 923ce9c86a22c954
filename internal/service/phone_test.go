package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeMSISDN(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "250788123456", want: "250788123456", ok: true},
		{in: "+250 788 123 456", want: "250788123456", ok: true},
		{in: "+250-788-123-456", want: "250788123456", ok: true},
		{in: "0788123456", want: "250788123456", ok: true},
		{in: "25078812345", ok: false},
		{in: "2507881234567", ok: false},
		{in: "254712345678", ok: false},
		{in: "788123456", ok: false},
		{in: "phone", ok: false},
		{in: "1788123456", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeMSISDN(tt.in)
			if !tt.ok {
				require.ErrorIs(t, err, ErrInvalidPhoneFormat)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
