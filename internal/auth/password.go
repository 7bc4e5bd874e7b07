package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

func HashPasscode(passcode string) (string, error) {
	if passcode == "" {
		return "", errors.New("empty passcode")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func ComparePasscode(hash, passcode string) error {
	if hash == "" || passcode == "" {
		return errors.New("missing hash or passcode")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(passcode))
}
