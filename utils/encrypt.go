package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"strings"
)

// ErrMalformedToken is returned when a token is too short to carry a nonce
var ErrMalformedToken = errors.New("malformed token")

// The backend derives the AES-256 key from the hex md5 of the passphrase, so
// tokens minted here open the same status pages as the ones it emails out.
func newGCM(passphrase string) (cipher.AEAD, error) {
	sum := md5.Sum([]byte(passphrase))
	block, err := aes.NewCipher([]byte(hex.EncodeToString(sum[:])))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncodeAndEncrypt encrypt the string data using passphrase and base64 encode
func EncodeAndEncrypt(s, passphrase string) (string, error) {
	gcm, err := newGCM(passphrase)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(s), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// DecodeAndDecrypt decode and decrypt base64 data
func DecodeAndDecrypt(token, passphrase string) (string, error) {
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	gcm, err := newGCM(passphrase)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", ErrMalformedToken
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// StatusLink builds the applicant status page link for a request ID
func StatusLink(baseURL, requestID, passphrase string) (string, error) {
	token, err := EncodeAndEncrypt(requestID, passphrase)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(baseURL, "/") + "/" + token, nil
}
