package proofServer

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/calldata"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

type CampaignSummary struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	ChainID    uint64      `json:"chainId"`
	MerkleRoot common.Hash `json:"merkleRoot"`
	CreatedAt  int64       `json:"createdAt"`
	Users      int         `json:"users"`
}

type CalldataResponse struct {
	Account  common.Address `json:"account"`
	Calldata hexutil.Bytes  `json:"calldata"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.HealthCheck(); err != nil {
		s.logger.Sugar().Warnw("Health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "persistence unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.store.ListCampaigns()
	if err != nil {
		s.logger.Sugar().Errorw("Failed to list campaigns", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	summaries := make([]CampaignSummary, 0, len(campaigns))
	for _, c := range campaigns {
		summaries = append(summaries, CampaignSummary{
			ID:         c.ID,
			Name:       c.Name,
			ChainID:    c.ChainID,
			MerkleRoot: c.Document.MerkleRoot,
			CreatedAt:  c.CreatedAt,
			Users:      c.UserCount(),
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

// loadCampaign writes the error response itself and returns nil when the campaign is unusable.
func (s *Server) loadCampaign(w http.ResponseWriter, r *http.Request) *types.Campaign {
	id := chi.URLParam(r, "campaignID")
	campaign, err := s.store.LoadCampaign(id)
	if err != nil {
		s.logger.Sugar().Errorw("Failed to load campaign", "campaign_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return nil
	}
	if campaign == nil {
		writeError(w, http.StatusNotFound, "campaign not found")
		return nil
	}
	return campaign
}

func (s *Server) loadUser(w http.ResponseWriter, r *http.Request) (common.Address, *types.UserProof) {
	campaign := s.loadCampaign(w, r)
	if campaign == nil {
		return common.Address{}, nil
	}

	account, err := types.ParseAccount(chi.URLParam(r, "account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return common.Address{}, nil
	}

	user, ok := campaign.Document.Users[account]
	if !ok || user == nil {
		writeError(w, http.StatusNotFound, "account is not whitelisted in this campaign")
		return common.Address{}, nil
	}
	return account, user
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign := s.loadCampaign(w, r)
	if campaign == nil {
		return
	}
	writeJSON(w, http.StatusOK, campaign.Document)
}

func (s *Server) handleGetUserProof(w http.ResponseWriter, r *http.Request) {
	_, user := s.loadUser(w, r)
	if user == nil {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleGetUserCalldata(w http.ResponseWriter, r *http.Request) {
	account, user := s.loadUser(w, r)
	if user == nil {
		return
	}

	data, err := calldata.PackUserProof(account, user)
	if err != nil {
		s.logger.Sugar().Errorw("Failed to pack calldata", "account", account.Hex(), "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, CalldataResponse{Account: account, Calldata: data})
}
