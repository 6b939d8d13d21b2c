package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

const SecretKeyBytesLen = 32

// Generates a fresh set of service keys in .env format
func main() {
	keys := []string{
		"SECRET_KEY",
		"PAYLOAD_SIGNING_KEY",
		"COLOR_DERIVATION_KEY",
		"OFFLINE_POOL_KEY",
	}

	for _, name := range keys {
		b := make([]byte, SecretKeyBytesLen)

		_, err := rand.Read(b)
		if err != nil {
			fmt.Printf("error while generating secret key: %v", err)
			os.Exit(1)
		}

		fmt.Printf("%s=%s\n", name, hex.EncodeToString(b))
	}
}
