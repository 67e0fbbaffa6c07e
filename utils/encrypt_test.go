package utils_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tywin1104/mc-dashboard/utils"
)

func TestDecodeBackendToken(t *testing.T) {
	// Token minted by the backend for request 5dc4dc43f7310f4c2a005674 with passphrase "passphrase"
	id, err := utils.DecodeAndDecrypt("UkWw8mNTfvN7ToC7Mkov6_pInwF3KoF1PuB3LG2jQ2MnLk_dOdNNQ8ufDFhoGjANsT03HQ==", "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "5dc4dc43f7310f4c2a005674", id)

	// adm token for op1@gmail.com
	op, err := utils.DecodeAndDecrypt("Xt-mlteCyiQe7sSS0HnLUOGJSgIW0lpi_SkYz7sahK411cgi5ecE8uQ=", "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "op1@gmail.com", op)
}

func TestEncodeAndDecrypt(t *testing.T) {
	token, err := utils.EncodeAndEncrypt("op1@gmail.com", "passphrase")
	require.NoError(t, err)

	plain, err := utils.DecodeAndDecrypt(token, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "op1@gmail.com", plain)

	_, err = utils.DecodeAndDecrypt(token, "another passphrase")
	assert.Error(t, err)
}

func TestDecodeMalformedToken(t *testing.T) {
	_, err := utils.DecodeAndDecrypt("not base64!", "passphrase")
	assert.Error(t, err)

	_, err = utils.DecodeAndDecrypt("AAAA", "passphrase")
	assert.ErrorIs(t, err, utils.ErrMalformedToken)
}

func TestStatusLink(t *testing.T) {
	link, err := utils.StatusLink("https://mc.example.com/status/", "5dc4dc43f7310f4c2a005674", "passphrase")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "https://mc.example.com/status/"))

	id, err := utils.DecodeAndDecrypt(strings.TrimPrefix(link, "https://mc.example.com/status/"), "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "5dc4dc43f7310f4c2a005674", id)
}
