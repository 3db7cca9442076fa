package teif_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bfarhat/facturation-tn/pkg/teif"
)

func TestNormalizeMatricule(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1234567A/A/M/000", "1234567AAM000"},
		{"1234567a-a-m-000", "1234567AAM000"},
		{"1234567 A A M 000", "1234567AAM000"},
		{"1234567AAM000", "1234567AAM000"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, teif.NormalizeMatricule(tc.in))
	}
}

func TestValidateMatricule(t *testing.T) {
	// Formes valides, avec et sans séparateurs.
	require.NoError(t, teif.ValidateMatricule("1234567A/A/M/000"))
	require.NoError(t, teif.ValidateMatricule("0736202XNM000"))
	require.NoError(t, teif.ValidateMatricule("7654321bpm002"))

	cases := []struct {
		name string
		in   string
	}{
		{"trop court", "123"},
		{"préfixe non numérique", "12345X7AAM000"},
		{"lettre clé manquante", "12345678AM000"},
		{"code TVA inconnu", "1234567AZM000"},
		{"code établissement inconnu", "1234567AAX000"},
		{"suffixe non numérique", "1234567AAM0X0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, teif.ValidateMatricule(tc.in))
		})
	}
}
