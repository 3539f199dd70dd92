package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Summary reports the outcome of one extraction run.
type Summary struct {
	Total     int
	Processed int
	Failed    int
}

// Extract converts raw query-string lines into the account file format.
// Each input line is expected to carry a "user=" parameter holding a
// URL-encoded JSON blob with id and username; the output is one
// "<id>|<username>" line per decodable input line, in input order.
// Undecodable lines are logged and skipped.
func Extract(inputPath, outputPath string) (Summary, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Summary{}, fmt.Errorf("%w: %s", ErrNotFound, inputPath)
		}
		return Summary{}, fmt.Errorf("read input file: %w", err)
	}

	var summary Summary
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(string(data), "\r", ""), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		summary.Total++
		entry, err := extractLine(line)
		if err != nil {
			summary.Failed++
			log.Warn().Err(err).Str("line", line).Msg("failed to extract user data")
			continue
		}
		summary.Processed++
		log.Info().Str("user", entry.Name).Msg("extracted user")
		out = append(out, entry.ID+"|"+entry.Name)
	}

	if err := os.WriteFile(outputPath, []byte(strings.Join(out, "\n")+"\n"), 0o644); err != nil {
		return summary, fmt.Errorf("write output file: %w", err)
	}
	return summary, nil
}

func extractLine(line string) (Account, error) {
	_, after, ok := strings.Cut(line, "user=")
	if !ok {
		return Account{}, fmt.Errorf("no user parameter")
	}
	encoded, _, _ := strings.Cut(after, "&")
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return Account{}, fmt.Errorf("decode user parameter: %w", err)
	}

	var user struct {
		ID       json.Number `json:"id"`
		Username string      `json:"username"`
	}
	if err := json.Unmarshal([]byte(decoded), &user); err != nil {
		return Account{}, fmt.Errorf("parse user json: %w", err)
	}
	if user.ID.String() == "" || user.Username == "" {
		return Account{}, fmt.Errorf("missing id or username")
	}
	return Account{ID: user.ID.String(), Name: user.Username}, nil
}
