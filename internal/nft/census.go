package nft

import (
	"context"
	"contract-orchestrator/internal/models"
	"contract-orchestrator/internal/validation"
	"fmt"
	"math/big"
	"sync"
)

const (
	defaultCensusWorkers = 4
	maxCensusRange       = 10_000
)

// Team is a named holder address tracked by Census
type Team struct {
	Name    string         `json:"name"`
	Address models.Address `json:"address"`
}

type TeamHoldings struct {
	Team
	Tokens []uint64 `json:"tokens"`
}

// CensusReport lists which team holds each token in a range. Tokens whose
// lookup failed or whose owner is not a team are Unassigned.
type CensusReport struct {
	Teams      []TeamHoldings `json:"teams"`
	Unassigned []uint64       `json:"unassigned"`
	Checked    int            `json:"checked"`
}

func (r CensusReport) Assigned() int {
	return r.Checked - len(r.Unassigned)
}

type ownerLookup struct {
	owner models.Address
	err   error
}

// Census looks up the owner of every token in [from, to] and buckets them
// by team address, ignoring case.
func (s *Service) Census(ctx context.Context, from, to uint64, teams []Team) (CensusReport, error) {
	if to < from {
		return CensusReport{}, fmt.Errorf("nft.census: %w: empty range %d..%d", validation.ErrInvalid, from, to)
	}
	if to-from >= maxCensusRange {
		return CensusReport{}, fmt.Errorf("nft.census: %w: range %d..%d exceeds %d tokens", validation.ErrInvalid, from, to, maxCensusRange)
	}
	byAddress := make(map[string]int, len(teams))
	report := CensusReport{Teams: make([]TeamHoldings, len(teams)), Unassigned: []uint64{}}
	for i, t := range teams {
		byAddress[t.Address.Key()] = i
		report.Teams[i] = TeamHoldings{Team: t, Tokens: []uint64{}}
	}

	lookups := make([]ownerLookup, to-from+1)
	sem := make(chan struct{}, defaultCensusWorkers)
	var wg sync.WaitGroup
	for i := range lookups {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			owner, err := s.OwnerOf(ctx, new(big.Int).SetUint64(from+uint64(i)))
			lookups[i] = ownerLookup{owner: owner, err: err}
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return CensusReport{}, err
	}

	for i, l := range lookups {
		tokenID := from + uint64(i)
		report.Checked++
		if l.err != nil {
			s.logger.Debug().Err(l.err).Uint64("tokenId", tokenID).Msg("Owner lookup failed")
			report.Unassigned = append(report.Unassigned, tokenID)
			continue
		}
		idx, ok := byAddress[l.owner.Key()]
		if !ok {
			s.logger.Debug().Uint64("tokenId", tokenID).Str("owner", l.owner.String()).Msg("Token held by unknown address")
			report.Unassigned = append(report.Unassigned, tokenID)
			continue
		}
		report.Teams[idx].Tokens = append(report.Teams[idx].Tokens, tokenID)
	}

	s.logger.Info().
		Int("checked", report.Checked).
		Int("assigned", report.Assigned()).
		Int("unassigned", len(report.Unassigned)).
		Msg("Token census complete")
	return report, nil
}
