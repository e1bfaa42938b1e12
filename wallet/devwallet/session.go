package devwallet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/wallet"
)

const sessionFile = "session.json"

// session is the on-disk log-in state shared by every process using the same home.
type session struct {
	Address    string    `json:"address"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

func sessionPath(home string) string {
	return filepath.Join(home, sessionFile)
}

// loadSession returns the snapshot stored in home. A missing file means nobody is logged in.
func loadSession(home string) (wallet.CurrentUser, error) {
	var s session
	found, err := readJSON(sessionPath(home), &s)
	if err != nil {
		return wallet.CurrentUser{}, fmt.Errorf("failed to read session: %w", err)
	}
	if !found || s.Address == "" {
		return wallet.Unauthenticated(), nil
	}

	addr, err := ledger.ParseAddress(s.Address)
	if err != nil {
		return wallet.CurrentUser{}, fmt.Errorf("invalid session address: %w", err)
	}

	return wallet.Authenticated(addr), nil
}

func saveSession(home string, addr ledger.Address, now time.Time) error {
	if err := os.MkdirAll(home, 0o700); err != nil {
		return fmt.Errorf("failed to create wallet home: %w", err)
	}

	return writeJSON(sessionPath(home), session{Address: addr.String(), LoggedInAt: now.UTC()}, 0o600)
}

func clearSession(home string) error {
	err := os.Remove(sessionPath(home))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}
