package testutil

import (
	"bytes"
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/abracadabra-money/cauldron-whitelist-go/internal/tests"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

// UST fixture: 6-decimal amounts, one zero-ceiling account that must be excluded.
const (
	FixtureUSTFile = "whitelist-ust.json"

	// FixtureUSTRoot is the merkle root of the included fixture accounts.
	FixtureUSTRoot = "0xcdea1e88ce68be6e7eac8afb55083eeb77f9e3718073c9b7243b642450d35b84"

	FixtureUSTIncluded = 5
)

var FixtureUSTZeroAccount = common.HexToAddress("0x6666666666666666666666666666666666666666")

// ReadFixture returns the raw bytes of a whitelist input fixture.
func ReadFixture(t *testing.T, name string) []byte {
	t.Helper()

	data, err := tests.ReadTestData(tests.GetProjectRootPath(), name)
	if err != nil {
		t.Fatalf("Failed to read fixture %s: %v", name, err)
	}
	return data
}

// FixtureReader wraps ReadFixture in a reader.
func FixtureReader(t *testing.T, name string) *bytes.Reader {
	t.Helper()
	return bytes.NewReader(ReadFixture(t, name))
}

// CreateTestEntries creates n entries with distinct accounts starting at 0x...01
// and ceilings of (i+1) * 1e6 (6-decimal token units).
func CreateTestEntries(n int) []*types.WhitelistEntry {
	entries := make([]*types.WhitelistEntry, n)
	for i := 0; i < n; i++ {
		entries[i] = &types.WhitelistEntry{
			Account:   common.BigToAddress(big.NewInt(int64(i + 1))),
			MaxBorrow: types.NewAmount(uint64(i+1) * 1_000_000),
		}
	}
	return entries
}

// ShuffleEntries returns a shuffled copy of entries using a fixed seed.
func ShuffleEntries(entries []*types.WhitelistEntry, seed int64) []*types.WhitelistEntry {
	shuffled := make([]*types.WhitelistEntry, len(entries))
	copy(shuffled, entries)

	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}
