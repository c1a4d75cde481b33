package main

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Execute implements the go-flags Commander interface for HashKeyCommand.
func (c *HashKeyCommand) Execute(args []string) error {
	key := c.Key
	if key == "" && len(args) > 0 {
		key = args[0]
	}
	if key == "" {
		return errors.New("a key is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), c.Cost)
	if err != nil {
		return fmt.Errorf("hashing key: %w", err)
	}
	fmt.Fprintln(c.out, string(hash))
	return nil
}
