// Package accounts loads the pipe-delimited account file driving the bot
// and provides the extraction utility that produces it from raw query
// lines.
package accounts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	// ErrNotFound means the account file does not exist. Fatal at startup.
	ErrNotFound = errors.New("account file not found")
	// ErrEmptyData means no valid account line survived filtering. Fatal
	// at startup.
	ErrEmptyData = errors.New("no account data found")
)

// Account is one pseudo-account to automate.
type Account struct {
	ID   string
	Name string
}

// Load reads path and returns the accounts in file order. Lines are
// "<id>|<name>"; carriage returns are stripped, and blank lines, lines
// without a pipe, or lines with an empty trimmed side are skipped with a
// warning.
func Load(path string) ([]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read account file: %w", err)
	}

	var accounts []Account
	lines := strings.Split(strings.ReplaceAll(string(data), "\r", ""), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id, name, ok := strings.Cut(line, "|")
		if !ok {
			log.Warn().Str("line", line).Msg("skipping account line without separator")
			continue
		}
		id, name = strings.TrimSpace(id), strings.TrimSpace(name)
		if id == "" || name == "" {
			log.Warn().Str("line", line).Msg("skipping account line with empty field")
			continue
		}
		accounts = append(accounts, Account{ID: id, Name: name})
	}

	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrEmptyData, path)
	}
	return accounts, nil
}
