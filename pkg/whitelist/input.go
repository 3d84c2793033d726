package whitelist

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

// inputEntry is the per-account object of the whitelist input file.
type inputEntry struct {
	UserBorrowPart json.RawMessage `json:"userBorrowPart"`
}

// ParseEntries decodes a whitelist input of the form
//
//	{ "0xAccount": { "userBorrowPart": "1337000000" }, ... }
//
// Amounts must be quoted decimal strings. The returned entries are sorted by account.
func ParseEntries(r io.Reader) ([]*types.WhitelistEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read whitelist input")
	}

	// Unmarshal rejects trailing data after the top-level object
	var raw map[string]*inputEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(types.ErrEncoding, "failed to decode whitelist input: %v", err)
	}
	if raw == nil {
		return nil, errors.Wrap(types.ErrEncoding, "whitelist input must be a JSON object")
	}

	seen := make(map[common.Address]string, len(raw))
	entries := make([]*types.WhitelistEntry, 0, len(raw))

	for key, in := range raw {
		account, err := types.ParseAccount(key)
		if err != nil {
			return nil, err
		}
		// keys differing only in case name the same account
		if prev, ok := seen[account]; ok {
			return nil, errors.Wrapf(types.ErrInvalidInput, "account %s listed twice (%q, %q)", account.Hex(), prev, key)
		}
		seen[account] = key

		if in == nil || len(in.UserBorrowPart) == 0 {
			return nil, errors.Wrapf(types.ErrEncoding, "account %s: missing userBorrowPart", key)
		}

		var amount types.Amount
		if err := json.Unmarshal(in.UserBorrowPart, &amount); err != nil {
			return nil, errors.Wrapf(err, "account %s", key)
		}

		entries = append(entries, &types.WhitelistEntry{
			Account:   account,
			MaxBorrow: amount,
		})
	}

	SortEntries(entries)
	return entries, nil
}

// SortEntries orders entries by account bytes, in place.
func SortEntries(entries []*types.WhitelistEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].Account[:], entries[j].Account[:]) < 0
	})
}
