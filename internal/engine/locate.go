package engine

import (
	"os"
	"os/exec"
	"strings"
)

var commonStockfishPaths = []string{
	"/usr/local/bin/stockfish",
	"/usr/bin/stockfish",
	"/usr/games/stockfish",
	"/opt/homebrew/bin/stockfish",
}

// LocateStockfish finds a Stockfish binary: explicit path first, then PATH,
// then the usual install locations. Returns "" when none is found.
func LocateStockfish(configured string) string {
	if p := strings.TrimSpace(configured); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if p, err := exec.LookPath("stockfish"); err == nil {
		return p
	}
	for _, p := range commonStockfishPaths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
