// Regenerates the bcrypt hashes embedded in scripts/schema.sql. Run it
// after changing a seed password and paste the output into the seed
// rows.
package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	seeds := []struct {
		account  string
		password string
	}{
		{"admin", "admin123"},
		{"instructor", "instructor123"},
		{"learner", "learner123"},
	}

	for _, s := range seeds {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hashing %s: %v\n", s.account, err)
			os.Exit(1)
		}
		fmt.Printf("%s (%s):\n  %s\n\n", s.account, s.password, hash)
	}
}
