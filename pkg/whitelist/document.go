package whitelist

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/merkle"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

var (
	ErrDocumentInvalid = errors.New("whitelist document failed verification")
	ErrUserNotFound    = errors.New("account is not in the whitelist document")
)

// WriteDocument writes the document as indented JSON.
func WriteDocument(w io.Writer, doc *types.WhitelistDocument) error {
	if doc == nil {
		return errors.Wrap(types.ErrInvalidInput, "cannot write nil whitelist document")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode whitelist document: %w", err)
	}
	return nil
}

// ReadDocument decodes a document previously written by WriteDocument.
func ReadDocument(r io.Reader) (*types.WhitelistDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read whitelist document: %w", err)
	}

	var doc types.WhitelistDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(types.ErrEncoding, "failed to decode whitelist document: %v", err)
	}
	if doc.MerkleRoot == (common.Hash{}) {
		return nil, errors.Wrap(types.ErrEncoding, "whitelist document has no merkleRoot")
	}
	if doc.Users == nil {
		doc.Users = make(map[common.Address]*types.UserProof)
	}
	return &doc, nil
}

// VerifyUser checks one account's proof against the document root.
// A proof that does not verify is reported as false, not as an error.
func VerifyUser(doc *types.WhitelistDocument, account common.Address, opts ...merkle.TreeOption) (bool, error) {
	if doc == nil {
		return false, errors.Wrap(types.ErrInvalidInput, "nil whitelist document")
	}
	user, ok := doc.Users[account]
	if !ok || user == nil {
		return false, errors.Wrapf(ErrUserNotFound, "account %s", account.Hex())
	}

	leaf := merkle.HashEntry(account, user.UserBorrowPart)
	if leaf != user.Leaf {
		return false, nil
	}
	return merkle.VerifyProof(leaf, user.Proof, doc.MerkleRoot, opts...), nil
}

// VerifyDocument re-derives every leaf from (account, userBorrowPart), checks each proof
// against merkleRoot and checks that the users rebuild exactly that root.
func VerifyDocument(doc *types.WhitelistDocument, opts ...merkle.TreeOption) error {
	if doc == nil {
		return errors.Wrap(types.ErrInvalidInput, "nil whitelist document")
	}
	if len(doc.Users) == 0 {
		return errors.Wrap(types.ErrEmptyInput, "whitelist document has no users")
	}

	entries := make([]*types.WhitelistEntry, 0, len(doc.Users))
	for account, user := range doc.Users {
		if user == nil {
			continue
		}
		entries = append(entries, &types.WhitelistEntry{Account: account, MaxBorrow: user.UserBorrowPart})
	}
	SortEntries(entries)

	var failures []string
	for _, entry := range entries {
		user := doc.Users[entry.Account]
		switch {
		case user.UserBorrowPart.IsZero():
			failures = append(failures, fmt.Sprintf("%s: zero userBorrowPart", entry.Account.Hex()))
		case merkle.HashEntry(entry.Account, user.UserBorrowPart) != user.Leaf:
			failures = append(failures, fmt.Sprintf("%s: leaf mismatch", entry.Account.Hex()))
		case !merkle.VerifyProof(user.Leaf, user.Proof, doc.MerkleRoot, opts...):
			failures = append(failures, fmt.Sprintf("%s: proof mismatch", entry.Account.Hex()))
		}
	}
	if len(doc.Users) != len(entries) {
		failures = append(failures, "document contains null user entries")
	}
	if len(failures) > 0 {
		return errors.Wrap(ErrDocumentInvalid, strings.Join(failures, "; "))
	}

	tree, err := merkle.BuildTree(entries, opts...)
	if err != nil {
		return err
	}
	if tree.Root() != doc.MerkleRoot {
		return errors.Wrapf(ErrDocumentInvalid, "users rebuild root %s, document claims %s", tree.Root().Hex(), doc.MerkleRoot.Hex())
	}
	return nil
}
