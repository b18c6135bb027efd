package coingecko

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadCoinList reads coin IDs from a text file, one per line.
//
// Lines that are empty or start with '#' (after trimming leading/trailing
// whitespace) are skipped, so list files can carry comments and blank
// separators. IDs are lowercased because the API only knows lowercase
// slugs. Order is preserved.
func LoadCoinList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("coingecko: open coin list: %w", err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.ToLower(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("coingecko: read coin list: %w", err)
	}
	return out, nil
}
