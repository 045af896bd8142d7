package core

import (
	"crypto/md5"
	"crypto/sha256"
	"fmt"
)

func SHA256(s string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(s)))
}

// MD5 is only used to derive short, stable file names; never for anything security-related.
func MD5(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}
